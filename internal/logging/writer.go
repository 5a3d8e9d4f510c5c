package logging

import (
	"io"

	"go.uber.org/multierr"
)

// CombinedWriter пишет в несколько writer'ов сразу. Ошибка одного
// не мешает остальным; ошибки собираются через multierr.
type CombinedWriter struct {
	writers []io.Writer
}

// NewCombinedWriter создаёт CombinedWriter.
func NewCombinedWriter(writers ...io.Writer) *CombinedWriter {
	return &CombinedWriter{writers: writers}
}

func (cw *CombinedWriter) Write(p []byte) (int, error) {
	var err error
	for _, w := range cw.writers {
		if _, werr := w.Write(p); werr != nil {
			err = multierr.Append(err, werr)
		}
	}
	// logrus считает запись успешной, только если записан весь буфер
	if err != nil && len(multierr.Errors(err)) == len(cw.writers) {
		return 0, err
	}
	return len(p), err
}
