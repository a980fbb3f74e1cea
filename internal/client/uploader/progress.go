package uploader

import "io"

// progressReader wraps a reader and reports the running percentage of total
// bytes read. The callback runs on the reading goroutine and must not block
// other transfers; registry updates satisfy that.
type progressReader struct {
	r        io.Reader
	total    int64
	read     int64
	onChange func(percent int)
	last     int
}

func newProgressReader(r io.Reader, total int64, onChange func(percent int)) *progressReader {
	return &progressReader{r: r, total: total, onChange: onChange}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.total > 0 {
		p.read += int64(n)
		percent := int(p.read * 100 / p.total)
		if percent > 100 {
			percent = 100
		}
		if percent != p.last {
			p.last = percent
			if p.onChange != nil {
				p.onChange(percent)
			}
		}
	}
	return n, err
}
