package export

import (
	"strconv"
	"strings"

	"github.com/vcanio/Terio-sub000/pkg/model"
)

// utf8BOM lets spreadsheet programs detect the encoding
const utf8BOM = "\ufeff"

// CSVHeader is the first row of the node export
const CSVHeader = "Nombre,Categoría,Nivel,Descripción Nivel"

// CSV serialises the node list in board order, every field quoted
func CSV(b model.Board) []byte {
	var sb strings.Builder
	sb.WriteString(utf8BOM)
	sb.WriteString(CSVHeader)
	sb.WriteByte('\n')
	for _, n := range b.Nodes {
		writeRow(&sb, n.Name, n.Category.Label(), strconv.Itoa(int(n.Level)), n.Level.Label())
	}
	return []byte(sb.String())
}

func writeRow(sb *strings.Builder, fields ...string) {
	for i, f := range fields {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('"')
		sb.WriteString(strings.ReplaceAll(f, `"`, `""`))
		sb.WriteByte('"')
	}
	sb.WriteByte('\n')
}
