package weather

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Observation is one hour of SMHI global irradiance data.
type Observation struct {
	// Global irradiance in W/m2.
	Irradiance float64
	// Sunshine duration within the hour in seconds.
	SunshineSeconds float64
}

// Irradiance holds hourly solar observations keyed by UTC hour start.
type Irradiance struct {
	observations map[time.Time]Observation
	last         time.Time
}

func (irr *Irradiance) At(hour time.Time) (Observation, bool) {
	o, ok := irr.observations[hour.UTC()]
	return o, ok
}

// Last is the newest observation hour in the data set.
func (irr *Irradiance) Last() time.Time {
	return irr.last
}

// LoadIrradiance parses an SMHI open data irradiance CSV export. The
// export carries a free form preamble; parsing starts at the header
// row beginning with "Datum".
func LoadIrradiance(path string) (*Irradiance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseIrradiance(f)
}

func ParseIrradiance(r io.Reader) (*Irradiance, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(raw), "\n")
	start := -1
	for i, line := range lines {
		if strings.HasPrefix(line, "Datum") {
			start = i
			break
		}
	}
	if start == -1 {
		return nil, fmt.Errorf("no Datum header row found")
	}

	reader := csv.NewReader(strings.NewReader(strings.Join(lines[start:], "\n")))
	reader.Comma = ';'
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, err
	}
	dateCol, timeCol, irrCol, sunCol := -1, -1, -1, -1
	for i, name := range header {
		switch {
		case name == "Datum":
			dateCol = i
		case strings.HasPrefix(name, "Tid"):
			timeCol = i
		case strings.HasPrefix(name, "Global Irradians"):
			irrCol = i
		case name == "Solskenstid":
			sunCol = i
		}
	}
	if dateCol == -1 || timeCol == -1 || irrCol == -1 || sunCol == -1 {
		return nil, fmt.Errorf("missing expected columns in header: %v", header)
	}

	irr := &Irradiance{observations: make(map[time.Time]Observation)}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) <= irrCol || len(record) <= sunCol {
			continue
		}
		ts, err := time.Parse("2006-01-02 15:04:05", record[dateCol]+" "+record[timeCol])
		if err != nil {
			continue
		}
		ts = ts.UTC()

		// missing samples are kept as zero production hours
		o := Observation{}
		if record[irrCol] != "" && record[sunCol] != "" {
			o.Irradiance, _ = strconv.ParseFloat(record[irrCol], 64)
			o.SunshineSeconds, _ = strconv.ParseFloat(record[sunCol], 64)
		}
		irr.observations[ts] = o
		if ts.After(irr.last) {
			irr.last = ts
		}
	}
	return irr, nil
}
