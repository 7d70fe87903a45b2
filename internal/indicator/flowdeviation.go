package indicator

import (
	"math"
	"sort"

	"github.com/couchcryptid/basin-health-service/internal/objective"
)

// FlowDeviation scores hydrologic alteration with the Annual Average
// Proportional Flow Deviation (AAPFD) of regulated against unregulated flow.
// The indicator is the mean of station scores weighted by each station's mean
// regulated discharge.
type FlowDeviation struct {
	leafBase
	stations []*Station
}

func NewFlowDeviation() *FlowDeviation { return &FlowDeviation{} }

func (*FlowDeviation) Kind() Kind { return KindFlowDeviation }

// AddStation takes ownership of s.
func (f *FlowDeviation) AddStation(s *Station) {
	s.notify = f.changed
	f.stations = append(f.stations, s)
	f.changed()
}

func (f *FlowDeviation) Station(name string) (*Station, bool) {
	for _, s := range f.stations {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

func (f *FlowDeviation) Stations() []*Station { return append([]*Station(nil), f.stations...) }

func (f *FlowDeviation) ComputeIndicator() (int, bool) {
	var weighted, discharge float64
	for _, s := range f.stations {
		st, ok := s.Stats()
		if !ok {
			continue
		}
		weighted += st.Score * st.MeanDischarge
		discharge += st.MeanDischarge
	}
	if weighted == 0 || discharge == 0 {
		return 0, false
	}
	return int(math.Round(weighted / discharge)), true
}

// StationStats are the derived flow statistics of a station.
type StationStats struct {
	YearlyAAPFD   map[int]float64 `json:"yearly_aapfd"`
	NetAAPFD      float64         `json:"net_aapfd"`
	MeanDischarge float64         `json:"mean_discharge"`
	Score         float64         `json:"score"`
}

// Station pairs a regulated and an unregulated discharge series.
type Station struct {
	Name        string
	regulated   []objective.Observation
	unregulated []objective.Observation

	stats  StationStats
	ok     bool
	fresh  bool
	notify func()
}

func NewStation(name string) *Station { return &Station{Name: name} }

func (s *Station) changed() {
	s.fresh = false
	if s.notify != nil {
		s.notify()
	}
}

func (s *Station) AppendRegulated(obs ...objective.Observation) {
	s.regulated = append(s.regulated, obs...)
	s.changed()
}

func (s *Station) AppendUnregulated(obs ...objective.Observation) {
	s.unregulated = append(s.unregulated, obs...)
	s.changed()
}

func (s *Station) ReplaceRegulated(series []objective.Observation) {
	s.regulated = append([]objective.Observation(nil), series...)
	s.changed()
}

func (s *Station) ReplaceUnregulated(series []objective.Observation) {
	s.unregulated = append([]objective.Observation(nil), series...)
	s.changed()
}

func (s *Station) Regulated() []objective.Observation {
	return append([]objective.Observation(nil), s.regulated...)
}

func (s *Station) Unregulated() []objective.Observation {
	return append([]objective.Observation(nil), s.unregulated...)
}

// Stats returns the cached statistics, recomputing after a series change.
// ok is false unless both series are non-empty and share a timestamp.
func (s *Station) Stats() (StationStats, bool) {
	if !s.fresh {
		s.stats, s.ok = computeStationStats(s.regulated, s.unregulated)
		s.fresh = true
	}
	return s.stats, s.ok
}

func computeStationStats(regulated, unregulated []objective.Observation) (StationStats, bool) {
	if len(regulated) == 0 || len(unregulated) == 0 {
		return StationStats{}, false
	}
	regAvg := monthlyAverages(regulated)
	unregAvg := monthlyAverages(unregulated)

	natural := make(map[int64]float64, len(unregulated))
	for _, u := range unregulated {
		natural[u.Time.UnixNano()] = u.Value
	}

	sums := make(map[int]float64)
	for _, r := range regulated {
		u, ok := natural[r.Time.UnixNano()]
		if !ok {
			continue
		}
		avg := unregAvg[r.Time.Month()-1]
		if avg == 0 {
			continue
		}
		d := (r.Value - u) / avg
		sums[r.Time.Year()] += d * d
	}
	if len(sums) == 0 {
		return StationStats{}, false
	}

	years := make([]int, 0, len(sums))
	for y := range sums {
		years = append(years, y)
	}
	sort.Ints(years)

	st := StationStats{YearlyAAPFD: make(map[int]float64, len(years))}
	for _, y := range years {
		a := math.Sqrt(sums[y])
		st.YearlyAAPFD[y] = a
		st.NetAAPFD += a
	}
	st.NetAAPFD /= float64(len(years))

	for _, m := range regAvg {
		st.MeanDischarge += m
	}
	st.MeanDischarge /= 12
	st.Score = FlowScore(st.NetAAPFD)
	return st, true
}

// monthlyAverages returns the mean value per calendar month; months without
// data are 0.
func monthlyAverages(series []objective.Observation) [12]float64 {
	var sum [12]float64
	var n [12]int
	for _, o := range series {
		m := o.Time.Month() - 1
		sum[m] += o.Value
		n[m]++
	}
	var avg [12]float64
	for m := range avg {
		if n[m] > 0 {
			avg[m] = sum[m] / float64(n[m])
		}
	}
	return avg
}

// FlowScore maps a net AAPFD onto 0-100. Deviations of 5 or more score 0.
func FlowScore(aapfd float64) float64 {
	switch {
	case aapfd < 0.3:
		return 100 - 100*aapfd
	case aapfd < 0.5:
		return 85 - 50*aapfd
	case aapfd < 2:
		return 80 - 20*aapfd
	case aapfd < 5:
		return 50 - 10*aapfd
	default:
		return 0
	}
}
