package listing

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/ufotracker/tracker/sighting"
)

func TestListing(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Listing Suite")
}

func ids(sightings []sighting.Sighting) []string {
	result := []string{}
	for _, s := range sightings {
		result = append(result, s.ID)
	}
	return result
}

var _ = Describe("Listing", func() {
	var sightings []sighting.Sighting

	BeforeEach(func() {
		day := func(d int) sighting.Timestamp {
			return sighting.NewTimestamp(time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC))
		}
		sightings = []sighting.Sighting{
			{ID: "1", Time: day(2), City: "Phoenix", Country: "USA", Shape: "Light"},
			{ID: "2", Time: day(5), City: "München", Country: "Germany", Shape: "Disk"},
			{ID: "3", Time: day(1), City: "London", Country: "UK", Shape: "Sphere"},
			{ID: "4", Time: day(4), City: "Reykjavik", Country: "Iceland", Shape: "Light"},
			{ID: "5", Time: day(3), City: "Bogotá", Country: "Colombia", Shape: "Orb"},
		}
	})

	Describe("Filter", func() {
		It("matches city, country and shape ignoring case", func() {
			Expect(ids(Filter(sightings, "LIGHT"))).To(Equal([]string{"1", "4"}))
			Expect(ids(Filter(sightings, "uk"))).To(Equal([]string{"3"}))
			Expect(ids(Filter(sightings, "phoe"))).To(Equal([]string{"1"}))
		})

		It("folds non-ASCII text", func() {
			Expect(ids(Filter(sightings, "MÜNCHEN"))).To(Equal([]string{"2"}))
		})

		It("keeps everything for a blank query", func() {
			Expect(Filter(sightings, "  ")).To(HaveLen(5))
		})

		It("returns an empty slice when nothing matches", func() {
			got := Filter(sightings, "atlantis")
			Expect(got).NotTo(BeNil())
			Expect(got).To(BeEmpty())
		})
	})

	Describe("Sort", func() {
		It("orders newest first by default", func() {
			Expect(ids(Sort(sightings, ByDate))).To(Equal([]string{"2", "4", "5", "1", "3"}))
		})

		It("orders by country alphabetically", func() {
			Expect(ids(Sort(sightings, ByCountry))).To(Equal([]string{"5", "2", "4", "3", "1"}))
		})

		It("keeps input order for equal countries", func() {
			dup := []sighting.Sighting{{ID: "a", Country: "USA"}, {ID: "b", Country: "UK"}, {ID: "c", Country: "USA"}}
			Expect(ids(Sort(dup, ByCountry))).To(Equal([]string{"b", "a", "c"}))
		})

		It("does not mutate its input", func() {
			Sort(sightings, ByCountry)
			Expect(ids(sightings)).To(Equal([]string{"1", "2", "3", "4", "5"}))
		})
	})

	It("parses the sort parameter", func() {
		Expect(ParseSort("country")).To(Equal(ByCountry))
		Expect(ParseSort(" Country ")).To(Equal(ByCountry))
		Expect(ParseSort("")).To(Equal(ByDate))
		Expect(ParseSort("bogus")).To(Equal(ByDate))
	})

	It("filters and sorts together", func() {
		Expect(ids(Apply(sightings, "light", ByCountry))).To(Equal([]string{"4", "1"}))
	})
})
