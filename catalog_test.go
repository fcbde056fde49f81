package markerbed

import (
	"context"
	"os"
	"path/filepath"

	. "gopkg.in/check.v1"
)

type CatalogSuite struct {
	path    string
	store   *Store
	catalog *Catalog
}

var _ = Suite(&CatalogSuite{})

func (s *CatalogSuite) SetUpTest(c *C) {
	s.path = filepath.Join(c.MkDir(), "markers.csv")
	var err error
	s.store, err = Open(s.path)
	c.Assert(err, IsNil)
	s.catalog = NewCatalog(s.store)
}

func (s *CatalogSuite) TestEmptyDataset(c *C) {
	records, err := s.catalog.Records()
	c.Assert(err, IsNil)
	c.Assert(records, HasLen, 0)
}

func (s *CatalogSuite) TestCommitsRefreshSnapshot(c *C) {
	ix, err := s.catalog.Index()
	c.Assert(err, IsNil)
	c.Assert(ix.Len(), Equals, 0)

	_, err = s.store.Upsert(context.Background(), shop("A1", -6.1, 106.9, "Shop A"))
	c.Assert(err, IsNil)

	ix, err = s.catalog.Index()
	c.Assert(err, IsNil)
	c.Assert(ix.Len(), Equals, 1)
	n, ok := ix.Nearest(-6.1, 106.9)
	c.Assert(ok, Equals, true)
	c.Assert(n.Record.ShopCode, Equals, "A1")
}

func (s *CatalogSuite) TestSnapshotIsStableUntilInvalidated(c *C) {
	_, err := s.store.Upsert(context.Background(), shop("A1", 1, 1, "a"))
	c.Assert(err, IsNil)
	first, err := s.catalog.Index()
	c.Assert(err, IsNil)

	// An edit behind the store's back is invisible until Invalidate.
	edited := MarshalDataset([]Record{{ShopCode: "A1", Latitude: 1, Longitude: 1}, {ShopCode: "Z9", Latitude: 2, Longitude: 2}})
	c.Assert(os.WriteFile(s.path, edited, 0644), IsNil)

	again, err := s.catalog.Index()
	c.Assert(err, IsNil)
	c.Assert(again, Equals, first)

	s.catalog.Invalidate()
	records, err := s.catalog.Records()
	c.Assert(err, IsNil)
	c.Assert(records, HasLen, 2)
	c.Assert(records[1].ShopCode, Equals, "Z9")
}

func (s *CatalogSuite) TestLoadErrorIsReturned(c *C) {
	c.Assert(os.WriteFile(s.path, []byte(Header+"\nA,north,1,a,b,c,\n"), 0644), IsNil)
	_, err := s.catalog.Index()
	c.Assert(err, NotNil)
}
