package msg

import "fmt"

// Progress produces "[index/total]" labels for a fixed number of steps
type Progress struct {
	Total   int
	Current int
}

func NewProgress(total int) *Progress {
	return &Progress{Total: total}
}

// Next advances the counter and returns the label for the new step
func (p *Progress) Next() string {
	if p.Current < p.Total {
		p.Current++
	}
	return p.Label()
}

// Label returns the label for the current step without advancing
func (p *Progress) Label() string {
	return fmt.Sprintf("[%d/%d]", p.Current, p.Total)
}

func (p *Progress) Done() bool {
	return p.Current >= p.Total
}
