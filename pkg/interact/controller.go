package interact

import (
	"log/slog"
	"sync"

	"github.com/vcanio/Terio-sub000/pkg/board"
	"github.com/vcanio/Terio-sub000/pkg/logging"
	"github.com/vcanio/Terio-sub000/pkg/model"
	"github.com/vcanio/Terio-sub000/pkg/pubsub"
	"github.com/vcanio/Terio-sub000/pkg/viewport"
)

// Mode is the interaction mode of the board
type Mode string

const (
	ModeIdle       Mode = "idle"
	ModeConnecting Mode = "connecting"
)

// KeyCancel exits connect mode
const KeyCancel = "Escape"

// Outcome tells the caller what a gesture did
type Outcome string

const (
	OutcomeNone           Outcome = "none"
	OutcomeModeEntered    Outcome = "mode_entered"
	OutcomeModeExited     Outcome = "mode_exited"
	OutcomeSourceSelected Outcome = "source_selected"
	OutcomeSourceCleared  Outcome = "source_cleared"
	OutcomeEdgeAdded      Outcome = "edge_added"
	OutcomeEdgeRemoved    Outcome = "edge_removed"
	OutcomeDragStarted    Outcome = "drag_started"
	OutcomeDragRejected   Outcome = "drag_rejected"
	OutcomeNodeMoved      Outcome = "node_moved"
	OutcomeDragEnded      Outcome = "drag_ended"
	OutcomePointerTracked Outcome = "pointer_tracked"
	OutcomeNodeDeleted    Outcome = "node_deleted"
)

// Segment is the rubber-band preview line from the pending source to the pointer
type Segment struct {
	From viewport.Point `json:"from"`
	To   viewport.Point `json:"to"`
}

// State is the ephemeral interaction state
type State struct {
	Mode            Mode            `json:"mode"`
	PendingSourceID string          `json:"pendingSourceId,omitempty"`
	Pointer         *viewport.Point `json:"pointer,omitempty"`
	DraggingID      string          `json:"draggingId,omitempty"`
	Preview         *Segment        `json:"preview,omitempty"`
}

// Controller turns pointer, click and key gestures into Graph Store operations.
//
// In Idle, dragging a node moves it. In Connecting, drags are suspended and clicks
// pick edge endpoints: the first click records a pending source, a click on a
// different endpoint toggles the edge and clears the source, and a click on the
// same endpoint cancels it. Connect mode stays on until toggled off or cancelled.
type Controller struct {
	mu        sync.Mutex
	store     *board.Store
	view      *viewport.Viewport
	publisher pubsub.Publisher
	mode      Mode
	pending   string
	pointer   *viewport.Point
	dragging  string
	log       *slog.Logger
}

// NewController creates an idle controller. publisher may be nil.
func NewController(store *board.Store, view *viewport.Viewport, publisher pubsub.Publisher) *Controller {
	return &Controller{
		store:     store,
		view:      view,
		publisher: publisher,
		mode:      ModeIdle,
		log:       logging.Component("interact"),
	}
}

// State returns the current interaction state, dropping a pending source that no
// longer exists on the board.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropStale()
	return c.state()
}

// ToggleConnect enters or leaves connect mode
func (c *Controller) ToggleConnect() (Outcome, State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode == ModeConnecting {
		c.exitConnecting()
		return c.emit(OutcomeModeExited)
	}
	c.mode = ModeConnecting
	c.dragging = ""
	return c.emit(OutcomeModeEntered)
}

// Key handles a key press; only the cancel key is meaningful
func (c *Controller) Key(key string) (Outcome, State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if key != KeyCancel || c.mode != ModeConnecting {
		return OutcomeNone, c.state()
	}
	c.exitConnecting()
	return c.emit(OutcomeModeExited)
}

// Cancel leaves connect mode, as if the cancel key was pressed
func (c *Controller) Cancel() (Outcome, State) {
	return c.Key(KeyCancel)
}

func (c *Controller) exitConnecting() {
	c.mode = ModeIdle
	c.pending = ""
	c.pointer = nil
}

// Click handles a click on a node or on the center
func (c *Controller) Click(id string) (Outcome, State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dropStale()
	if c.mode != ModeConnecting || !c.store.HasEndpoint(id) {
		return OutcomeNone, c.state()
	}

	switch {
	case c.pending == "":
		c.pending = id
		c.pointer = nil
		return c.emit(OutcomeSourceSelected)

	case c.pending == id:
		c.pending = ""
		c.pointer = nil
		return c.emit(OutcomeSourceCleared)
	}

	source := c.pending
	c.pending = ""
	c.pointer = nil
	added, changed := c.store.ToggleEdge(source, id)
	if !changed {
		return c.emit(OutcomeSourceCleared)
	}
	c.log.Debug("edge toggled", "from", source, "to", id, "added", added)
	if added {
		return c.emit(OutcomeEdgeAdded)
	}
	return c.emit(OutcomeEdgeRemoved)
}

// PointerDown starts a drag on a node. Drags are refused in connect mode, on the
// center, and on the node pinned as pending source.
func (c *Controller) PointerDown(id string) (Outcome, State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dropStale()
	if c.mode == ModeConnecting || id == model.CenterID || id == c.pending {
		return OutcomeDragRejected, c.state()
	}
	if _, _, ok := c.store.Position(id); !ok {
		return OutcomeDragRejected, c.state()
	}
	c.dragging = id
	return OutcomeDragStarted, c.state()
}

// PointerMove converts a screen point to board coordinates and either moves the
// dragged node or updates the connect preview. rendered is the board's bounding
// box as measured by the client; nil uses the viewport's own geometry.
func (c *Controller) PointerMove(screen viewport.Point, rendered *viewport.Rect) (Outcome, State) {
	var rect viewport.Rect
	if rendered != nil && rendered.Width > 0 {
		rect = *rendered
	} else {
		rect = c.view.RenderedRect()
	}
	p := viewport.ScreenToLogical(screen, rect)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.dropStale()
	if c.dragging != "" {
		if _, ok := c.store.UpdateNodePosition(c.dragging, p.X, p.Y); !ok {
			c.dragging = ""
			return OutcomeNone, c.state()
		}
		logging.Trace("node dragged", "nodeID", c.dragging, "x", p.X, "y", p.Y)
		return OutcomeNodeMoved, c.state()
	}
	if c.mode == ModeConnecting && c.pending != "" {
		c.pointer = &p
		return OutcomePointerTracked, c.state()
	}
	return OutcomeNone, c.state()
}

// MoveNode places a node at logical coordinates without a pointer gesture. It
// follows the drag rules: refused in connect mode and for the center.
func (c *Controller) MoveNode(id string, x, y float64) (model.Node, Outcome, State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dropStale()
	if c.mode == ModeConnecting || id == model.CenterID {
		return model.Node{}, OutcomeDragRejected, c.state()
	}
	n, ok := c.store.UpdateNodePosition(id, x, y)
	if !ok {
		return model.Node{}, OutcomeNone, c.state()
	}
	return n, OutcomeNodeMoved, c.state()
}

// PointerUp ends any drag in progress
func (c *Controller) PointerUp() (Outcome, State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dragging == "" {
		return OutcomeNone, c.state()
	}
	c.dragging = ""
	return OutcomeDragEnded, c.state()
}

// DeleteNode removes a node from the board and clears any interaction state
// that referenced it.
func (c *Controller) DeleteNode(id string) (Outcome, State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.store.DeleteNode(id) {
		return OutcomeNone, c.state()
	}
	if c.dragging == id {
		c.dragging = ""
	}
	if c.pending == id {
		c.pending = ""
		c.pointer = nil
	}
	return c.emit(OutcomeNodeDeleted)
}

// Reset returns to idle, e.g. when the board is cleared or the patient changes
func (c *Controller) Reset() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exitConnecting()
	c.dragging = ""
	_, s := c.emit(OutcomeModeExited)
	return s
}

// dropStale clears references to nodes that vanished from the board by any route
func (c *Controller) dropStale() {
	if c.pending != "" && !c.store.HasEndpoint(c.pending) {
		c.log.Debug("pending source vanished", "nodeID", c.pending)
		c.pending = ""
		c.pointer = nil
	}
	if c.dragging != "" && !c.store.HasEndpoint(c.dragging) {
		c.dragging = ""
	}
}

func (c *Controller) state() State {
	s := State{
		Mode:            c.mode,
		PendingSourceID: c.pending,
		DraggingID:      c.dragging,
	}
	if c.pointer != nil {
		p := *c.pointer
		s.Pointer = &p
		if x, y, ok := c.store.Position(c.pending); ok {
			s.Preview = &Segment{From: viewport.Point{X: x, Y: y}, To: p}
		}
	}
	return s
}

// Preview returns the rubber-band segment when one should be drawn
func (c *Controller) Preview() (Segment, bool) {
	s := c.State()
	if s.Preview == nil {
		return Segment{}, false
	}
	return *s.Preview, true
}

// emit publishes mode/pending changes. Caller holds c.mu.
func (c *Controller) emit(o Outcome) (Outcome, State) {
	s := c.state()
	if c.publisher != nil {
		if err := c.publisher.Publish(pubsub.TopicInteraction, string(o), s); err != nil {
			c.log.Warn("publishing interaction state failed", "error", err)
		}
	}
	return o, s
}
