package fastqio

import "io"

var newline = []byte{'\n'}
var at = []byte{'@'}
var plus = []byte{'+'}

// Writer writes FASTQ records, grounded on the teacher's
// encoding/fastq.Writer line-at-a-time idiom.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter wraps w (already compression-selected, see package compressio)
// in a FASTQ writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteRead writes one record; name must not include the leading '@'.
func (w *Writer) WriteRead(name, seq, qual []byte) error {
	w.writeln(at, name)
	w.writeln(nil, seq)
	w.writeln(plus, nil)
	w.writeln(nil, qual)
	return w.err
}

func (w *Writer) writeln(prefix, body []byte) {
	if w.err != nil {
		return
	}
	if prefix != nil {
		if _, w.err = w.w.Write(prefix); w.err != nil {
			return
		}
	}
	if _, w.err = w.w.Write(body); w.err != nil {
		return
	}
	_, w.err = w.w.Write(newline)
}

// Err returns the first write error encountered, if any.
func (w *Writer) Err() error { return w.err }
