package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/vcanio/Terio-sub000/pkg/graph"
	"github.com/vcanio/Terio-sub000/pkg/logging"
	"github.com/vcanio/Terio-sub000/pkg/model"
	"github.com/vcanio/Terio-sub000/pkg/pubsub"
)

var (
	// ErrNothingToExport is returned for table, report and CSV exports of a board
	// without people. It is a notice, not a failure.
	ErrNothingToExport = errors.New("nothing to export")

	// ErrInProgress rejects a second concurrent export of the same kind
	ErrInProgress = errors.New("export already in progress")

	// ErrUnknownKind is returned by ParseKind
	ErrUnknownKind = errors.New("unknown export kind")
)

// Kind is an artifact type
type Kind string

const (
	KindMap    Kind = "map"
	KindTable  Kind = "table"
	KindReport Kind = "report"
	KindCSV    Kind = "csv"
)

// Kinds lists every artifact type
var Kinds = []Kind{KindMap, KindTable, KindReport, KindCSV}

// ParseKind validates an artifact type name
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) ext() string {
	if k == KindCSV {
		return "csv"
	}
	return "png"
}

func (k Kind) contentType() string {
	if k == KindCSV {
		return "text/csv; charset=utf-8"
	}
	return "image/png"
}

func (k Kind) prefix() string {
	switch k {
	case KindTable:
		return "tabla-red"
	case KindReport:
		return "informe-red"
	case KindCSV:
		return "datos-red"
	}
	return "mapa-red"
}

// Status values published on the export topic
const (
	StateStarted   = "started"
	StateSucceeded = "succeeded"
	StateFailed    = "failed"
	StateEmpty     = "empty"
)

// Artifact is a finished export, ready to be handed to a Delivery
type Artifact struct {
	Kind        Kind
	Filename    string
	ContentType string
	Data        []byte
}

// Request describes one export
type Request struct {
	Kind        Kind
	PatientName string
	Board       model.Board
	NodeScale   float64
}

// Result is what Start eventually delivers
type Result struct {
	Artifact Artifact
	Err      error
}

// Delivery hands a finished artifact to the user
type Delivery interface {
	Deliver(ctx context.Context, a Artifact) error
}

// DirDelivery writes artifacts into a directory
type DirDelivery struct {
	Dir string
}

// Deliver writes the artifact as Dir/Filename
func (d DirDelivery) Deliver(ctx context.Context, a Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export dir: %w", err)
	}
	path := filepath.Join(d.Dir, a.Filename)
	if err := os.WriteFile(path, a.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	logging.Debug("artifact written", "path", path, "bytes", len(a.Data))
	return nil
}

// Exporter produces artifacts from board snapshots. Exports of the same kind do
// not overlap; different kinds may run concurrently.
type Exporter struct {
	raster    Rasterizer
	publisher pubsub.Publisher
	now       func() time.Time
	log       *slog.Logger

	mu       sync.Mutex
	inFlight map[Kind]bool
}

// NewExporter creates an exporter. publisher may be nil.
func NewExporter(r Rasterizer, publisher pubsub.Publisher) *Exporter {
	return &Exporter{
		raster:    r,
		publisher: publisher,
		now:       time.Now,
		log:       logging.Component("export"),
		inFlight:  make(map[Kind]bool),
	}
}

// InProgress reports whether an export of kind is running
func (e *Exporter) InProgress(kind Kind) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inFlight[kind]
}

// Busy lists the kinds currently exporting
func (e *Exporter) Busy() []Kind {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []Kind
	for _, k := range Kinds {
		if e.inFlight[k] {
			out = append(out, k)
		}
	}
	return out
}

func (e *Exporter) claim(kind Kind) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inFlight[kind] {
		return false
	}
	e.inFlight[kind] = true
	return true
}

func (e *Exporter) release(kind Kind) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inFlight, kind)
}

// Export builds the artifact synchronously
func (e *Exporter) Export(ctx context.Context, req Request) (Artifact, error) {
	kind, err := ParseKind(string(req.Kind))
	if err != nil {
		return Artifact{}, err
	}
	req.Kind = kind
	if !e.claim(req.Kind) {
		return Artifact{}, ErrInProgress
	}
	defer e.release(req.Kind)

	req.Board = req.Board.Clone()
	return e.run(ctx, req)
}

// Start snapshots the board immediately and builds the artifact on a goroutine.
// The returned channel receives exactly one Result. A duplicate request of a kind
// already in flight settles at once with ErrInProgress.
func (e *Exporter) Start(ctx context.Context, req Request) <-chan Result {
	done := make(chan Result, 1)

	kind, err := ParseKind(string(req.Kind))
	if err != nil {
		done <- Result{Err: err}
		return done
	}
	req.Kind = kind
	if !e.claim(req.Kind) {
		done <- Result{Err: ErrInProgress}
		return done
	}

	req.Board = req.Board.Clone()
	go func() {
		a, err := e.run(ctx, req)
		// Released before the result is delivered
		e.release(req.Kind)
		done <- Result{Artifact: a, Err: err}
	}()
	return done
}

func (e *Exporter) run(ctx context.Context, req Request) (Artifact, error) {
	log := e.log.With("kind", string(req.Kind))
	e.publish(req.Kind, StateStarted, "", "")

	if len(req.Board.Nodes) == 0 && req.Kind != KindMap {
		log.Info("nothing to export")
		e.publish(req.Kind, StateEmpty, "", "No hay personas en el mapa para exportar")
		return Artifact{}, ErrNothingToExport
	}

	start := e.now()
	data, err := e.render(ctx, req)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		log.Warn("export failed", "error", err)
		e.publish(req.Kind, StateFailed, "", "No se pudo exportar, intente nuevamente")
		return Artifact{}, fmt.Errorf("export %s: %w", req.Kind, err)
	}

	a := Artifact{
		Kind:        req.Kind,
		Filename:    Filename(req.Kind, req.PatientName, start),
		ContentType: req.Kind.contentType(),
		Data:        data,
	}
	log.Info("export finished", "filename", a.Filename, "bytes", len(data), "duration", e.now().Sub(start))
	e.publish(req.Kind, StateSucceeded, a.Filename, "Exportación lista")
	return a, nil
}

func (e *Exporter) render(ctx context.Context, req Request) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var scene Element
	switch req.Kind {
	case KindCSV:
		return CSV(req.Board), nil
	case KindMap:
		// Built as the interactive tree; the rasterizer's Walk drops the chrome.
		scene = BoardScene(req.Board, BoardOptions{NodeScale: req.NodeScale, Chrome: true})
	case KindTable:
		scene = TableScene(req.Board, req.PatientName)
	case KindReport:
		scene = ReportScene(req.Board, req.PatientName, graph.Compute(req.Board))
	}
	if e.raster == nil {
		return nil, errors.New("no rasterizer configured")
	}
	return e.raster.Rasterize(scene)
}

func (e *Exporter) publish(kind Kind, state, filename, message string) {
	if e.publisher == nil {
		return
	}
	status := pubsub.ExportStatus{Kind: string(kind), State: state, Filename: filename, Message: message}
	if err := e.publisher.Publish(pubsub.TopicExport, state, status); err != nil {
		e.log.Warn("publishing export status failed", "error", err)
	}
}

// Filename suggests a download name such as mapa-red-ana-perez-2024-05-01.png
func Filename(kind Kind, patientName string, at time.Time) string {
	name := kind.prefix()
	if slug := slugify(patientName); slug != "" {
		name += "-" + slug
	}
	return name + "-" + at.Format("2006-01-02") + "." + kind.ext()
}

var accents = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n",
)

func slugify(s string) string {
	s = accents.Replace(strings.ToLower(strings.TrimSpace(s)))
	var sb strings.Builder
	dash := false
	for _, r := range s {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			sb.WriteRune(r)
			dash = false
			continue
		}
		if !dash && sb.Len() > 0 {
			sb.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}
