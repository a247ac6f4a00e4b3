package nav

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestRoute_Validate(t *testing.T) {
	tests := []struct {
		name    string
		route   Route
		wantErr error
	}{
		{"Valid", testRoute(), nil},
		{"Empty", Route{}, ErrRouteTooShort},
		{"StartOnly", testRoute()[:1], ErrRouteTooShort},
		{"LatOutOfRange", Route{{Lat: 0}, {Lat: 91}}, ErrInvalidCoordinate},
		{"LonOutOfRange", Route{{Lon: 0}, {Lon: -181}}, ErrInvalidCoordinate},
		{"NaN", Route{{Lat: 0}, {Lat: math.NaN()}}, ErrInvalidCoordinate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.route.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadRoute(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "route.json")
	if err := os.WriteFile(good, []byte(`[{"name":"A","lat":51.5,"lon":-0.1},{"name":"B","lat":51.501,"lon":-0.1}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := LoadRoute(good)
	if err != nil {
		t.Fatalf("LoadRoute() error: %v", err)
	}
	if len(r) != 2 || r[1].Name != "B" {
		t.Errorf("LoadRoute() = %+v", r)
	}

	short := filepath.Join(dir, "short.json")
	if err := os.WriteFile(short, []byte(`[{"name":"A","lat":51.5,"lon":-0.1}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRoute(short); !errors.Is(err, ErrRouteTooShort) {
		t.Errorf("LoadRoute(short) = %v, want ErrRouteTooShort", err)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{not json`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRoute(bad); err == nil {
		t.Error("LoadRoute(bad) expected error")
	}

	if _, err := LoadRoute(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("LoadRoute(missing) expected error")
	}
}
