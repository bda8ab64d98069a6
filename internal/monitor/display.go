package monitor

import "time"

// Display is the rendered state of every configured element at one refresh.
type Display struct {
	Time           time.Time        `json:"time"`
	NoDataReceived bool             `json:"no_data_received"`
	Elements       []ElementDisplay `json:"elements"`
}

// ElementDisplay is one rendered counter or graph.
type ElementDisplay struct {
	Label       string      `json:"label"`
	Type        ElementType `json:"type"`
	Units       string      `json:"units,omitempty"`
	Value       float64     `json:"value"`
	Text        string      `json:"text,omitempty"`
	Highlighted bool        `json:"highlighted,omitempty"`
	Series      []Series    `json:"series,omitempty"`
}

// Series is the sample history of one stat shown by a graph, oldest first.
type Series struct {
	Stat    string    `json:"stat"`
	Samples []float64 `json:"samples"`
}
