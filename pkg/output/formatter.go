package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/vcanio/Terio-sub000/pkg/export"
	"github.com/vcanio/Terio-sub000/pkg/graph"
	"github.com/vcanio/Terio-sub000/pkg/model"
	"github.com/vcanio/Terio-sub000/pkg/patient"
	"github.com/vcanio/Terio-sub000/pkg/zone"
)

// Color definitions
var (
	bold   = color.New(color.Bold)
	red    = color.New(color.FgRed)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	cyan   = color.New(color.FgCyan)
)

// PrintPatients lists the registered patients, marking the active one
func PrintPatients(w io.Writer, patients []patient.Patient, activeID string) {
	bold.Fprintln(w, "Pacientes")
	bold.Fprintln(w, "=========")
	if len(patients) == 0 {
		yellow.Fprintln(w, "No hay pacientes registrados")
		return
	}
	for _, p := range patients {
		marker := "  "
		if p.ID == activeID {
			marker = green.Sprint("* ")
		}
		fmt.Fprintf(w, "%s%s ", marker, p.Name)
		cyan.Fprintf(w, "(%s, %s)\n", p.ID, p.CreatedAt.Format("2006-01-02"))
	}
}

// PrintMetrics prints a colorized summary of a patient's network
func PrintMetrics(w io.Writer, patientName string, b model.Board, m graph.Metrics) {
	bold.Fprintf(w, "Red de apoyo social - %s\n", patientName)
	bold.Fprintln(w, strings.Repeat("=", len([]rune(patientName))+23))
	fmt.Fprintf(w, "Personas: %d\n", m.Size)
	fmt.Fprintf(w, "Vínculos: %d (%d con %s)\n", m.Edges, m.CenterDegree, b.CenterLabel)
	fmt.Fprintf(w, "Densidad: %.0f%%\n", m.Density*100)
	fmt.Fprintln(w)

	bold.Fprintln(w, "Por categoría:")
	for _, c := range zone.Categories {
		fmt.Fprintf(w, "  %-18s %d\n", c.Label(), m.ByCategory[c])
	}
	bold.Fprintln(w, "Por nivel:")
	for _, l := range zone.Levels {
		fmt.Fprintf(w, "  %d - %-14s %d\n", l, l.Label(), m.ByLevel[l])
	}
	fmt.Fprintln(w)

	if m.Size == 0 {
		yellow.Fprintln(w, "El mapa está vacío")
		return
	}
	fmt.Fprintf(w, "Grupos: %d (el mayor con %d personas)\n", m.Clusters, m.LargestGroup)
	if m.MostConnected != "" {
		green.Fprintf(w, "Más conectado: %s (%d vínculos)\n", nameOf(b, m.MostConnected), m.Degrees[m.MostConnected])
	}
	if len(m.Isolated) > 0 {
		red.Fprintf(w, "Sin vínculos: %s\n", names(b, m.Isolated))
	}
	if len(m.OutOfSector) > 0 {
		yellow.Fprintf(w, "Fuera de su cuadrante: %s\n", names(b, m.OutOfSector))
	}
	if len(m.Links) > 0 {
		fmt.Fprintln(w)
		bold.Fprintln(w, "Vínculos por persona:")
		for _, n := range b.Nodes {
			if links, ok := m.Links[n.ID]; ok {
				fmt.Fprintf(w, "  %s: %s\n", n.Name, names(b, links))
			}
		}
	}
}

// PrintExport reports a written artifact
func PrintExport(w io.Writer, a export.Artifact, path string) {
	green.Fprint(w, "✓ ")
	fmt.Fprintf(w, "%s exportado: ", a.Kind)
	cyan.Fprintf(w, "%s", path)
	fmt.Fprintf(w, " (%s)\n", humanBytes(len(a.Data)))
}

// PrintError prints an error line in red
func PrintError(w io.Writer, err error) {
	red.Fprintf(w, "Error: %v\n", err)
}

func nameOf(b model.Board, id string) string {
	if label := b.Label(id); label != "" {
		return label
	}
	return id
}

func names(b model.Board, ids []string) string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = nameOf(b, id)
	}
	return strings.Join(out, ", ")
}

func humanBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%d B", n)
}
