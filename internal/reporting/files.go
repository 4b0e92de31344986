package reporting

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

type reportFile struct {
	name  string
	write func(io.Writer) error
}

// WriteFiles writes the markdown, JSON and CSV renditions of r into dir and
// returns the written file names.
func WriteFiles(dir string, r *Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	files := []reportFile{
		{"REPORT.md", func(w io.Writer) error {
			_, err := io.WriteString(w, RenderMarkdown(r))
			return err
		}},
		{"report.json", func(w io.Writer) error { return WriteJSON(w, r) }},
		{"summary.csv", func(w io.Writer) error { return WriteSummaryCSV(w, r) }},
		{"trades.csv", func(w io.Writer) error { return WriteTradesCSV(w, r) }},
		{"orders.csv", func(w io.Writer) error { return WriteOrdersCSV(w, r) }},
	}
	for _, sec := range r.Symbols {
		files = append(files,
			reportFile{"candles_" + sec.Symbol + ".csv", func(w io.Writer) error { return WriteCandlesCSV(w, sec.Candles) }},
			reportFile{"days_" + sec.Symbol + ".csv", func(w io.Writer) error { return WriteDaysCSV(w, sec.Days) }},
		)
	}

	names := make([]string, 0, len(files))
	for _, file := range files {
		if err := writeFile(filepath.Join(dir, file.name), file.write); err != nil {
			return names, fmt.Errorf("%s: %w", file.name, err)
		}
		names = append(names, file.name)
	}
	return names, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
