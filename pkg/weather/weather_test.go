package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOutdoorAveragesSources(t *testing.T) {
	srv1 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("2.0"))
	}))
	defer srv1.Close()
	srv2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("4.0\n"))
	}))
	defer srv2.Close()

	p := NewTemperatureProvider(0, srv1.URL, srv2.URL)
	assert.Equal(t, 3.0, p.Outdoor(context.Background()))
}

func TestOutdoorKeepsLastGoodValue(t *testing.T) {
	responses := []string{"5.5", "not a number"}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(responses[0]))
		if len(responses) > 1 {
			responses = responses[1:]
		}
	}))
	defer srv.Close()

	p := NewTemperatureProvider(0, srv.URL)
	assert.Equal(t, 5.5, p.Outdoor(context.Background()))

	p.lastUpdate = time.Time{} // expire the cache
	assert.Equal(t, 5.5, p.Outdoor(context.Background()))
}

func TestOutdoorFallbackWhenNeverRead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewTemperatureProvider(-4.5, srv.URL)
	assert.Equal(t, -4.5, p.Outdoor(context.Background()))
}

const smhiSample = `Stationsnamn;Klimatnummer
Göteborg Sol;71415
Parameternamn;Beskrivning
Datum;Tid (UTC);Global Irradians (svenska stationer);Solskenstid;Kvalitet
2025-06-01;10:00:00;750.2;3600;G
2025-06-01;11:00:00;812.0;3400;G
2025-06-01;12:00:00;;;G
`

func TestParseIrradiance(t *testing.T) {
	irr, err := ParseIrradiance(strings.NewReader(smhiSample))
	assert.NoError(t, err)

	o, ok := irr.At(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	assert.True(t, ok)
	assert.Equal(t, 750.2, o.Irradiance)
	assert.Equal(t, 3600.0, o.SunshineSeconds)

	// missing readings become zero production hours
	o, ok = irr.At(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	assert.True(t, ok)
	assert.Equal(t, 0.0, o.Irradiance)

	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), irr.Last())

	_, ok = irr.At(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	assert.False(t, ok)
}

func TestParseIrradianceMissingHeader(t *testing.T) {
	_, err := ParseIrradiance(strings.NewReader("no;header;here\n1;2;3\n"))
	assert.Error(t, err)
}
