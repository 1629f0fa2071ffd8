package export

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/branchgrow/internal/engine"
	"github.com/san-kum/branchgrow/internal/growth"
)

type ExportData struct {
	Seed     int64              `json:"seed"`
	Width    int                `json:"width"`
	Height   int                `json:"height"`
	Branches int                `json:"branches"`
	Mode     string             `json:"sync_mode"`
	Dt       float64            `json:"dt"`
	Ticks    int                `json:"ticks"`
	Samples  []engine.Stats     `json:"samples"`
	Final    engine.Stats       `json:"final"`
	Metrics  map[string]float64 `json:"metrics"`
	Faults   []string           `json:"faults,omitempty"`
	Agents   []growth.Info      `json:"agents"`
}

// NewExportData collects a finished run into one document.
func NewExportData(s engine.Settings, cfg engine.RunConfig, res *engine.Result, branches []*growth.Branch) ExportData {
	data := ExportData{
		Seed:     s.Seed,
		Width:    s.Width,
		Height:   s.Height,
		Branches: s.Branches,
		Mode:     s.Mode.String(),
		Dt:       cfg.Dt,
		Ticks:    cfg.Ticks,
		Samples:  res.Samples,
		Final:    res.Final,
		Metrics:  res.Metrics,
		Agents:   make([]growth.Info, len(branches)),
	}
	for i, b := range branches {
		data.Agents[i] = b.Info()
	}
	for _, f := range res.Faults {
		data.Faults = append(data.Faults, f.Error())
	}
	return data
}

func WriteJSON(w io.Writer, data ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func ExportJSON(path string, data ExportData) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, data)
}

func ExportJSONStdout(data ExportData) error {
	return WriteJSON(os.Stdout, data)
}
