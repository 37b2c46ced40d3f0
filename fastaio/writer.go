package fastaio

import "io"

var newline = []byte{'\n'}
var gt = []byte{'>'}

// Writer writes FASTA records (quality is accepted for interface
// symmetry with fastqio.Writer but discarded).
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter wraps w (already compression-selected) in a FASTA writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteRead writes one record; name must not include the leading '>'.
func (w *Writer) WriteRead(name, seq, qual []byte) error {
	w.writeln(gt, name)
	w.writeln(nil, seq)
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
