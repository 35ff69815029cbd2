package export

// Dataset is tabular content produced by the analytics queries.
type Dataset struct {
	Headers []string
	// Numeric names the columns holding numbers. Tabular PDF output
	// right-aligns them.
	Numeric []string
	Rows    []map[string]string
}

// record orders one row's cells by the header sequence. Missing cells come
// back empty.
func (d Dataset) record(row map[string]string) []string {
	out := make([]string, len(d.Headers))
	for i, header := range d.Headers {
		out[i] = row[header]
	}
	return out
}

func (d Dataset) isNumeric(header string) bool {
	for _, name := range d.Numeric {
		if name == header {
			return true
		}
	}
	return false
}
