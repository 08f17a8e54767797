package stage

// Section is one chapter marker in the virtual page. Top/Height are in
// pixels of the scrollable document.
type Section struct {
	ID     ChapterID
	Index  int
	Top    float64
	Height float64
}

// Page models the scrollable document behind the backdrop: 7 chapter
// sections, each one viewport tall. Scroll position drives two
// independent pure computations: per-section visibility ratios (chapter
// tracking) and the hero fade factor (backdrop opacity).
type Page struct {
	sections  []Section
	viewportW float64
	viewportH float64
	scroll    float64
}

func NewPage(viewportW, viewportH float64) *Page {
	p := &Page{}
	p.Rebind(viewportW, viewportH)
	return p
}

// Rebind rescans the chapter sections for the viewport size, preserving
// the relative scroll position. Safe to call repeatedly (re-entry after a
// navigation); it never accumulates state.
func (p *Page) Rebind(viewportW, viewportH float64) {
	if viewportW <= 0 {
		viewportW = float64(DefaultWindowWidth)
	}
	if viewportH <= 0 {
		viewportH = float64(DefaultWindowHeight)
	}
	rel := 0.0
	if max := p.maxScroll(); max > 0 {
		rel = p.scroll / max
	}
	p.viewportW = viewportW
	p.viewportH = viewportH
	p.sections = p.sections[:0]
	for i, id := range chapterOrder {
		p.sections = append(p.sections, Section{
			ID:     id,
			Index:  i,
			Top:    float64(i) * viewportH,
			Height: viewportH,
		})
	}
	p.scroll = rel * p.maxScroll()
}

func (p *Page) maxScroll() float64 {
	if len(p.sections) == 0 {
		return 0
	}
	last := p.sections[len(p.sections)-1]
	return last.Top + last.Height - p.viewportH
}

// ScrollBy moves the document by delta pixels (positive = down).
func (p *Page) ScrollBy(delta float64) {
	p.SetScroll(p.scroll + delta)
}

func (p *Page) SetScroll(v float64) {
	p.scroll = clampF(v, 0, p.maxScroll())
}

func (p *Page) Scroll() float64 { return p.scroll }

func (p *Page) ViewportWidth() float64 { return p.viewportW }

// VisibilityRatios returns, per section, the fraction of the viewport it
// covers. Pure function of the current scroll offset.
func (p *Page) VisibilityRatios(dst []float64) []float64 {
	dst = dst[:0]
	top := p.scroll
	bottom := p.scroll + p.viewportH
	for _, s := range p.sections {
		lo := s.Top
		if lo < top {
			lo = top
		}
		hi := s.Top + s.Height
		if hi > bottom {
			hi = bottom
		}
		overlap := hi - lo
		if overlap < 0 {
			overlap = 0
		}
		dst = append(dst, overlap/p.viewportH)
	}
	return dst
}

// HeroFade returns the backdrop intensity factor derived from how far the
// hero section has scrolled past: 1 at the top, dropping linearly to 0.45
// once the hero is fully gone. The backdrop never fully hides.
func (p *Page) HeroFade() float64 {
	if len(p.sections) == 0 {
		return 1
	}
	gone := clampF(p.scroll/p.sections[0].Height, 0, 1)
	return 1 - 0.55*gone
}
