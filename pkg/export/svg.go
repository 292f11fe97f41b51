package export

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ajstarks/deck"
	svg "github.com/ajstarks/svgo/float"
)

const (
	linespacing  = 1.4
	listspacing  = 2.0
	listwrap     = 95.0
	defaultColor = "rgb(127,127,127)"
	codeShade    = "rgb(240,240,240)"
	strokefmt    = "stroke-width:%.2fpx;stroke:%s;stroke-opacity:%.2f"
	fillfmt      = "fill:%s;fill-opacity:%.2f"
)

// SVGExporter renders deck markup to one SVG document per slide, in process.
type SVGExporter struct {
	width  int
	height int
	fonts  map[string]string
}

// NewSVGExporter creates an exporter with a 1920x1080 fallback canvas.
func NewSVGExporter() *SVGExporter {
	return &SVGExporter{
		width:  1920,
		height: 1080,
		fonts: map[string]string{
			"sans":  "Helvetica, Arial, sans-serif",
			"serif": "Georgia, Times, serif",
			"mono":  "Monaco, Consolas, monospace",
		},
	}
}

// WithCanvas sets the canvas used when the markup declares none.
func (e *SVGExporter) WithCanvas(width, height int) *SVGExporter {
	e.width, e.height = width, height
	return e
}

// WithFonts sets the font families substituted for sans, serif and mono.
func (e *SVGExporter) WithFonts(sans, serif, mono string) *SVGExporter {
	e.fonts["sans"] = sans
	e.fonts["serif"] = serif
	e.fonts["mono"] = mono
	return e
}

func (e *SVGExporter) Formats() []Format { return []Format{FormatSVG} }

// Export implements Exporter.
func (e *SVGExporter) Export(ctx context.Context, deckXML []byte, format Format) (*Result, error) {
	if format != FormatSVG {
		return nil, fmt.Errorf("unsupported format %s: in-process export only supports svg", format)
	}

	var d deck.Deck
	if err := xml.Unmarshal(deckXML, &d); err != nil {
		return nil, fmt.Errorf("failed to parse deck XML: %w", err)
	}
	if d.Canvas.Width == 0 {
		d.Canvas.Width = e.width
	}
	if d.Canvas.Height == 0 {
		d.Canvas.Height = e.height
	}

	result := &Result{
		Pages:      make([][]byte, len(d.Slide)),
		Format:     FormatSVG,
		Title:      d.Title,
		SlideCount: len(d.Slide),
	}
	for i := range d.Slide {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := e.WriteSlide(&buf, &d, i); err != nil {
			return nil, err
		}
		result.Pages[i] = buf.Bytes()
	}
	return result, nil
}

// WriteSlide renders slide n of d as a standalone SVG document.
func (e *SVGExporter) WriteSlide(w io.Writer, d *deck.Deck, n int) error {
	if n < 0 || n >= len(d.Slide) {
		return fmt.Errorf("slide index %d out of range", n)
	}
	p := &page{
		doc:   svg.New(w),
		w:     float64(d.Canvas.Width),
		h:     float64(d.Canvas.Height),
		fonts: e.fonts,
	}
	p.draw(d.Slide[n])
	return nil
}

// page draws one slide onto an SVG document. Deck coordinates are percent of
// the canvas with the origin at the bottom left.
type page struct {
	doc   *svg.SVG
	w, h  float64
	fonts map[string]string
}

func (p *page) draw(slide deck.Slide) {
	p.doc.Startview(p.w, p.h, 0, 0, p.w, p.h)

	if slide.Bg != "" {
		p.fill(0, 0, p.w, p.h, slide.Bg, 0)
	}
	if slide.Gradcolor1 != "" && slide.Gradcolor2 != "" {
		p.doc.Def()
		p.doc.LinearGradient("slidegrad", 0, 0, 0, 100, []svg.Offcolor{
			{Offset: 0, Color: slide.Gradcolor1, Opacity: 1.0},
			{Offset: 100, Color: slide.Gradcolor2, Opacity: 1.0},
		})
		p.doc.DefEnd()
		p.doc.Rect(0, 0, p.w, p.h, "fill:url(#slidegrad)")
	}
	fg := slide.Fg
	if fg == "" {
		fg = "black"
	}

	// layer order: image, rect, ellipse, curve, arc, line, poly, text, list
	for _, im := range slide.Image {
		p.image(im, fg)
	}
	for _, r := range slide.Rect {
		x, y, _ := p.at(r.Xp, r.Yp, 0)
		w := pct(r.Wp, p.w)
		h := pct(r.Hp, p.h)
		if r.Hr != 0 {
			h = pct(r.Hr, w)
		}
		p.fill(x-w/2, y-h/2, w, h, orDefault(r.Color), r.Opacity)
	}
	for _, el := range slide.Ellipse {
		x, y, _ := p.at(el.Xp, el.Yp, 0)
		w := pct(el.Wp, p.w)
		h := pct(el.Hp, p.h)
		if el.Hr != 0 {
			h = pct(el.Hr, w)
		}
		p.doc.Ellipse(x, y, w/2, h/2, fillop(orDefault(el.Color), el.Opacity))
	}
	for _, c := range slide.Curve {
		x1, y1, sw := p.at(c.Xp1, c.Yp1, c.Sp)
		x2, y2, _ := p.at(c.Xp2, c.Yp2, 0)
		x3, y3, _ := p.at(c.Xp3, c.Yp3, 0)
		p.doc.Qbez(x1, y1, x2, y2, x3, y3, "fill:none;"+strokeop(stroke(sw), orDefault(c.Color), c.Opacity))
	}
	for _, a := range slide.Arc {
		x, y, sw := p.at(a.Xp, a.Yp, a.Sp)
		rw := pct(a.Wp, p.w) / 2
		rh := pct(a.Hp, p.w) / 2
		sx, sy := polar(x, y, rw, -a.A1)
		ex, ey := polar(x, y, rh, -a.A2)
		p.doc.Arc(sx, sy, rw, rh, 0, a.A2-a.A1 >= 180, false, ex, ey,
			"fill:none;"+strokeop(stroke(sw), orDefault(a.Color), a.Opacity))
	}
	for _, l := range slide.Line {
		x1, y1, sw := p.at(l.Xp1, l.Yp1, l.Sp)
		x2, y2, _ := p.at(l.Xp2, l.Yp2, 0)
		p.doc.Line(x1, y1, x2, y2, strokeop(stroke(sw), orDefault(l.Color), l.Opacity))
	}
	for _, poly := range slide.Polygon {
		p.polygon(poly.XC, poly.YC, orDefault(poly.Color), poly.Opacity)
	}
	for _, t := range slide.Text {
		p.text(t, fg)
	}
	for _, l := range slide.List {
		p.list(l, fg)
	}

	p.doc.End()
}

// at converts percent coordinates and a percent size to canvas units.
func (p *page) at(xp, yp, sp float64) (float64, float64, float64) {
	return pct(xp, p.w), pct(100-yp, p.h), pct(sp, p.w)
}

func (p *page) font(name string) string {
	if f, ok := p.fonts[name]; ok {
		return f
	}
	return p.fonts["sans"]
}

func (p *page) fill(x, y, w, h float64, color string, opacity float64) {
	p.doc.Rect(x, y, w, h, fillop(color, opacity))
}

func (p *page) image(im deck.Image, fg string) {
	x, y, _ := p.at(im.Xp, im.Yp, 0)
	iw, ih := float64(im.Width), float64(im.Height)
	if im.Scale > 0 {
		iw *= im.Scale / 100
		ih *= im.Scale / 100
	}
	if im.Autoscale == "on" && iw > 0 && iw < p.w {
		ih = (p.w / iw) * ih
		iw = p.w
	}
	p.doc.Image(x-iw/2, y-ih/2, int(iw), int(ih), im.Name)

	if im.Caption == "" {
		return
	}
	size := deck.Pwidth(im.Sp, p.w, pct(2.0, p.w))
	font, color, align := im.Font, im.Color, im.Align
	if font == "" {
		font = "sans"
	}
	if color == "" {
		color = fg
	}
	if align == "" {
		align = "center"
	}
	p.line(x, y+ih/2+size*2, im.Caption, size, font, color, align)
}

func (p *page) polygon(xc, yc string, color string, opacity float64) {
	xs := strings.Fields(xc)
	ys := strings.Fields(yc)
	if len(xs) != len(ys) || len(xs) < 3 {
		return
	}
	px := make([]float64, len(xs))
	py := make([]float64, len(ys))
	for i := range xs {
		if x, err := strconv.ParseFloat(xs[i], 64); err == nil {
			px[i] = pct(x, p.w)
		}
		if y, err := strconv.ParseFloat(ys[i], 64); err == nil {
			py[i] = pct(100-y, p.h)
		}
	}
	p.doc.Polygon(px, py, fillop(color, opacity))
}

func (p *page) line(x, y float64, s string, size float64, font, color, align string) {
	p.doc.Text(x, y, s, `xml:space="preserve"`,
		fmt.Sprintf("fill:%s;font-size:%.2fpx;font-family:%s;text-anchor:%s", svgcolor(color), size, p.font(font), anchor(align)))
}

func (p *page) text(t deck.Text, fg string) {
	color, font, lp := t.Color, t.Font, t.Lp
	if color == "" {
		color = fg
	}
	if font == "" {
		font = "sans"
	}
	if lp == 0 {
		lp = linespacing
	}
	data := t.Tdata
	if t.File != "" {
		data = t.File
	}

	x, y, size := p.at(t.Xp, t.Yp, t.Sp)
	leading := lp * size
	lines := strings.Split(data, "\n")

	if t.Rotation > 0 {
		p.doc.RotateTranslate(x, y, t.Rotation)
	}
	switch t.Type {
	case "code":
		font = "mono"
		p.fill(x-size, y-size, p.w-x-20, float64(len(lines))*leading, codeShade, t.Opacity)
		for _, l := range lines {
			p.line(x, y, l, size, font, color, t.Align)
			y += leading
		}
	case "block":
		width := p.w / 2
		if t.Wp != 0 {
			width = pct(t.Wp, p.w)
		}
		p.wrap(x, y, width, size, leading, data, font, color, t.Opacity)
	default:
		for _, l := range lines {
			p.line(x, y, l, size, font, color, t.Align)
			y += leading
		}
	}
	if t.Rotation > 0 {
		p.doc.Gend()
	}
}

// wrap breaks s into lines that fit width, estimating glyph width from size.
func (p *page) wrap(x, y, width, size, leading float64, s, font, color string, opacity float64) {
	p.doc.Gstyle(fmt.Sprintf("fill-opacity:%.2f;fill:%s;font-family:%s;font-size:%.2fpx",
		setop(opacity), svgcolor(color), p.font(font), size))
	var line string
	for _, word := range strings.Fields(s) {
		if word == `\n` {
			y += leading
			continue
		}
		candidate := line + word + " "
		if line != "" && size*float64(len(candidate))*0.5 > width {
			p.doc.Text(x, y, strings.TrimSpace(line))
			y += leading
			candidate = word + " "
		}
		line = candidate
	}
	if line != "" {
		p.doc.Text(x, y, strings.TrimSpace(line))
	}
	p.doc.Gend()
}

func (p *page) list(l deck.List, fg string) {
	color, font, lp := l.Color, l.Font, l.Lp
	if color == "" {
		color = fg
	}
	if font == "" {
		font = "sans"
	}
	if lp == 0 {
		lp = listspacing
	}

	x, y, size := p.at(l.Xp, l.Yp, l.Sp)
	p.doc.Gstyle(fmt.Sprintf("fill-opacity:%.2f;fill:%s;font-family:%s;font-size:%.2fpx",
		setop(l.Opacity), svgcolor(color), p.font(font), size))
	if l.Type == "bullet" {
		x += size
	}
	for i, item := range l.Li {
		s := item.ListText
		switch l.Type {
		case "number":
			s = fmt.Sprintf("%d. %s", i+1, s)
		case "bullet":
			r := size / 2
			p.doc.Circle(x-size, y-(r*2)/3, r/2, "fill:"+svgcolor(color))
		}
		style := fmt.Sprintf("fill-opacity:%.2f", setop(item.Opacity))
		if item.Color != "" {
			style += ";fill:" + svgcolor(item.Color)
		}
		if item.Font != "" {
			style += ";font-family:" + p.font(item.Font)
		}
		if l.Align == "center" || l.Align == "c" {
			style += ";text-anchor:middle"
		}
		p.doc.Text(x, y, s, `xml:space="preserve"`, style)
		y += lp * size
	}
	p.doc.Gend()
}

func pct(p, m float64) float64 { return (p / 100.0) * m }

func polar(x, y, r, angle float64) (float64, float64) {
	rad := angle * math.Pi / 180.0
	return r*math.Cos(rad) + x, r*math.Sin(rad) + y
}

func stroke(sw float64) float64 {
	if sw == 0 {
		return 2.0
	}
	return sw
}

func orDefault(color string) string {
	if color == "" {
		return defaultColor
	}
	return color
}

// setop maps deck opacity (percent, 0 meaning opaque) to SVG opacity.
func setop(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 0:
		return v / 100
	default:
		return 1
	}
}

func anchor(align string) string {
	switch align {
	case "center", "middle", "mid", "c":
		return "middle"
	case "right", "end", "e":
		return "end"
	default:
		return "start"
	}
}

func strokeop(sw float64, color string, opacity float64) string {
	return fmt.Sprintf(strokefmt, sw, svgcolor(color), setop(opacity))
}

func fillop(color string, opacity float64) string {
	return fmt.Sprintf(fillfmt, svgcolor(color), setop(opacity))
}

// svgcolor converts deck's hsv(h,s,v) colours to rgb; others pass through.
func svgcolor(color string) string {
	if !strings.HasPrefix(color, "hsv(") || !strings.HasSuffix(color, ")") || len(color) <= 5 {
		return color
	}
	parts := strings.Split(strings.NewReplacer(" ", "", "\t", "").Replace(color[4:len(color)-1]), ",")
	if len(parts) != 3 {
		return "rgb(0,0,0)"
	}
	h, _ := strconv.ParseFloat(parts[0], 64)
	s, _ := strconv.ParseFloat(parts[1], 64)
	v, _ := strconv.ParseFloat(parts[2], 64)
	r, g, b := hsv2rgb(h, s, v)
	return fmt.Sprintf("rgb(%d,%d,%d)", r, g, b)
}

func hsv2rgb(h, s, v float64) (int, int, int) {
	s /= 100
	v /= 100
	if s > 1 || v > 1 || h < 0 {
		return 0, 0, 0
	}
	h = math.Mod(h, 360)
	c := v * s
	section := h / 60
	x := c * (1 - math.Abs(math.Mod(section, 2)-1))

	var r, g, b float64
	switch {
	case section <= 1:
		r, g, b = c, x, 0
	case section <= 2:
		r, g, b = x, c, 0
	case section <= 3:
		r, g, b = 0, c, x
	case section <= 4:
		r, g, b = 0, x, c
	case section <= 5:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	m := v - c
	return int(math.Round((r + m) * 255)), int(math.Round((g + m) * 255)), int(math.Round((b + m) * 255))
}
