package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RealmResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realmforge_realm_resolutions_total",
			Help: "Class resolutions by realm and the source that satisfied them",
		},
		[]string{"realm", "source"},
	)

	RealmSelfLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realmforge_realm_self_loads_total",
			Help: "Number of times a realm read a class from its own search path",
		},
		[]string{"realm"},
	)

	RealmCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realmforge_realms",
			Help: "Number of realms currently registered in the world",
		},
	)
)

// Resolution sources reported on RealmResolutions
const (
	SourceBase   = "base"
	SourceImport = "import"
	SourceSelf   = "self"
	SourceParent = "parent"
	SourceMiss   = "miss"
)
