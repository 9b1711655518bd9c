package bridged

import (
	"fmt"
	"os"
	"unicode"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// consoleEncoder replaces control characters so chain-supplied strings cannot forge log lines.
type consoleEncoder struct {
	zapcore.Encoder
}

func (e consoleEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	buf, err := e.Encoder.EncodeEntry(entry, fields)
	if err != nil {
		return nil, err
	}

	b := buf.Bytes()
	for i := range b {
		if unicode.IsControl(rune(b[i])) && !unicode.IsSpace(rune(b[i])) {
			b[i] = '\x1A' // Substitute character
		}
	}

	return buf, nil
}

func (e consoleEncoder) Clone() zapcore.Encoder {
	return consoleEncoder{e.Encoder.Clone()}
}

// newLogger builds the process logger. format is "json" or "console".
func newLogger(level string, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var enc zapcore.Encoder
	switch format {
	case "json":
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	case "console":
		enc = consoleEncoder{zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())}
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}

	return zap.New(zapcore.NewCore(
		enc,
		zapcore.AddSync(zapcore.Lock(os.Stderr)),
		zap.NewAtomicLevelAt(lvl))), nil
}
