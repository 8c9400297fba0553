package mapkit

import (
	"fmt"
	"sync/atomic"

	"github.com/paulmach/orb"
)

var popupSeq atomic.Uint64

// Size is a width/height pair in pixels.
type Size struct {
	W int `json:"w"`
	H int `json:"h"`
}

// Popup is an overlay showing HTML at a geographic location.
type Popup struct {
	ID      string
	LonLat  orb.Point
	MaxSize Size
	HTML    string

	destroyed bool
}

// NewPopup creates a popup anchored at lonLat. An empty id is replaced by a
// generated one.
func NewPopup(id string, lonLat orb.Point, html string) *Popup {
	if id == "" {
		id = fmt.Sprintf("popup_%d", popupSeq.Add(1))
	}
	return &Popup{ID: id, LonLat: lonLat, HTML: html}
}

// Destroy releases the popup. It is safe to call more than once.
func (p *Popup) Destroy() {
	p.destroyed = true
	p.HTML = ""
}

// Destroyed reports whether Destroy has been called.
func (p *Popup) Destroyed() bool {
	return p.destroyed
}
