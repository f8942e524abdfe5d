package server

import "hash/fnv"

// palette matches the hues the web client renders project groups with.
var palette = []string{
	"#4E79A7", "#F28E2B", "#E15759", "#76B7B2", "#59A14F",
	"#EDC948", "#B07AA1", "#FF9DA7", "#9C755F", "#BAB0AC",
}

// ColorFor deterministically assigns a palette color to a project id. The
// same id always maps to the same color, with no shared lookup state.
func ColorFor(id int) string {
	h := fnv.New32a()
	h.Write([]byte{byte(id), byte(id >> 8), byte(id >> 16), byte(id >> 24)})
	return palette[h.Sum32()%uint32(len(palette))]
}
