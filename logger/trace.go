package logger

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// TraceTimeLayout is the timestamp layout of diagnostic trace lines.
const TraceTimeLayout = "2006-01-02 15:04:05.000000"

// traceEncoder writes one "<timestamp> <message>" line per entry.
// Fields and logger names are ignored; trace messages are self-contained.
type traceEncoder struct {
	*zapcore.MapObjectEncoder
}

func (enc *traceEncoder) Clone() zapcore.Encoder {
	return &traceEncoder{MapObjectEncoder: zapcore.NewMapObjectEncoder()}
}

func (enc *traceEncoder) EncodeEntry(ent zapcore.Entry, _ []zapcore.Field) (*buffer.Buffer, error) {
	line := bufferPool.Get()
	line.AppendTime(ent.Time, TraceTimeLayout)
	line.AppendByte(' ')
	line.AppendString(ent.Message)
	line.AppendByte('\n')
	return line, nil
}

// NewTraceLogger builds the diagnostic trace logger writing to w.
// Every level is enabled; writes to w are serialized.
func NewTraceLogger(w io.Writer) *zap.Logger {
	core := zapcore.NewCore(
		&traceEncoder{MapObjectEncoder: zapcore.NewMapObjectEncoder()},
		zapcore.Lock(zapcore.AddSync(w)),
		zapcore.DebugLevel,
	)
	return zap.New(core)
}
