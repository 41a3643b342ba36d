package engine

import (
	"github.com/yeomjw0907/catchdeal/internal/model"
)

// Sink receives engine events. Implementations must not block; the
// engine calls them from its scan goroutine.
type Sink interface {
	// Log receives a human-readable progress line.
	Log(line string)
	// Status receives every status transition.
	Status(status model.EngineStatus)
	// LinkExtracted fires when a commerce link is queued for dissection.
	LinkExtracted(link model.ExtractedLink)
	// LinkUpdated fires when a link reaches a terminal state.
	LinkUpdated(link model.ExtractedLink)
}

// FuncSink adapts plain functions to Sink. Nil fields are skipped.
type FuncSink struct {
	OnLog           func(line string)
	OnStatus        func(status model.EngineStatus)
	OnLinkExtracted func(link model.ExtractedLink)
	OnLinkUpdated   func(link model.ExtractedLink)
}

func (f FuncSink) Log(line string) {
	if f.OnLog != nil {
		f.OnLog(line)
	}
}

func (f FuncSink) Status(status model.EngineStatus) {
	if f.OnStatus != nil {
		f.OnStatus(status)
	}
}

func (f FuncSink) LinkExtracted(link model.ExtractedLink) {
	if f.OnLinkExtracted != nil {
		f.OnLinkExtracted(link)
	}
}

func (f FuncSink) LinkUpdated(link model.ExtractedLink) {
	if f.OnLinkUpdated != nil {
		f.OnLinkUpdated(link)
	}
}

func (e *Engine) emitLog(line string) {
	e.logger.Debug(line)
	if e.sink != nil {
		e.sink.Log(line)
	}
}

func (e *Engine) emitStatus(status model.EngineStatus) {
	if e.sink != nil {
		e.sink.Status(status)
	}
}

func (e *Engine) emitLinkExtracted(link model.ExtractedLink) {
	if e.sink != nil {
		e.sink.LinkExtracted(link)
	}
}

func (e *Engine) emitLinkUpdated(link model.ExtractedLink) {
	if e.sink != nil {
		e.sink.LinkUpdated(link)
	}
}
