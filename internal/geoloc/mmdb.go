package geoloc

import (
	"net/netip"

	"github.com/oschwald/geoip2-golang"
	"github.com/rotisserie/eris"

	"github.com/sells-group/geowave/internal/model"
)

// MaxMindDB looks addresses up in a MaxMind GeoIP2/GeoLite2 City database.
type MaxMindDB struct {
	reader *geoip2.Reader
}

// OpenMaxMind opens the .mmdb file at path.
func OpenMaxMind(path string) (*MaxMindDB, error) {
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geoloc: open mmdb %s", path)
	}
	return &MaxMindDB{reader: r}, nil
}

// Lookup implements GeoDatabase.
func (m *MaxMindDB) Lookup(addr netip.Addr) (*model.GeoInfo, error) {
	rec, err := m.reader.City(addr.AsSlice())
	if err != nil {
		return nil, eris.Wrapf(err, "geoloc: lookup %s", addr)
	}
	return cityToGeoInfo(rec), nil
}

// Close releases the database.
func (m *MaxMindDB) Close() error {
	return m.reader.Close()
}

func cityToGeoInfo(rec *geoip2.City) *model.GeoInfo {
	if rec == nil {
		return nil
	}
	info := &model.GeoInfo{
		Country: rec.Country.IsoCode,
		City:    rec.City.Names["en"],
	}
	if len(rec.Subdivisions) > 0 {
		info.Region = rec.Subdivisions[0].IsoCode
	}
	if rec.Location.Latitude != 0 || rec.Location.Longitude != 0 {
		info.Point = model.NewGeoPoint(rec.Location.Latitude, rec.Location.Longitude)
	}
	if info.Country == "" && info.City == "" && info.Region == "" && info.Point == nil {
		return nil
	}
	return info
}

// NoopDB has no entries; every lookup is absent.
type NoopDB struct{}

// Lookup implements GeoDatabase.
func (NoopDB) Lookup(netip.Addr) (*model.GeoInfo, error) { return nil, nil }
