package broadcast

import (
	"time"

	"github.com/conneroisu/bindery/internal/errors"
	"github.com/conneroisu/bindery/internal/pipeline"
	"github.com/conneroisu/bindery/internal/toc"
)

// Build statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
	StatusError  = "error"
)

// BuildMessage is sent to clients after every rebuild. A failed build
// carries the report and never a partial table of contents.
type BuildMessage struct {
	Type      string               `json:"type"`
	Session   string               `json:"session,omitempty"`
	Sequence  uint64               `json:"sequence"`
	Status    string               `json:"status"`
	State     pipeline.State       `json:"state"`
	TOC       *toc.TableOfContents `json:"toc,omitempty"`
	Report    *errors.Report       `json:"report,omitempty"`
	Error     string               `json:"error,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

// NewBuildMessage describes the outcome of one pipeline run.
func NewBuildMessage(seq uint64, res *pipeline.Result, err error) BuildMessage {
	msg := BuildMessage{
		Type:      "build",
		Sequence:  seq,
		Timestamp: time.Now().UTC(),
	}

	if err != nil {
		if state, ok := pipeline.Halted(err); ok {
			msg.Status = StatusFailed
			msg.State = state
			msg.Report, _ = errors.AsReport(err)
			return msg
		}
		msg.Status = StatusError
		msg.Error = err.Error()
		return msg
	}

	msg.Status = StatusOK
	msg.State = res.State
	msg.TOC = res.TOC
	if len(res.Warnings.Issues) > 0 {
		msg.Report = res.Warnings
	}
	return msg
}

// PublishBuild sends the outcome of a run to every client, stamped with
// the hub's session so clients can tell a restarted watcher from a new
// build.
func (h *Hub) PublishBuild(seq uint64, res *pipeline.Result, err error) error {
	msg := NewBuildMessage(seq, res, err)
	msg.Session = h.session
	return h.Publish(msg)
}
