package domain

// River describes a monitored river reach: a stable key used on scene
// records and a WGS-84 bounding box [west, south, east, north] the
// collector searches.
type River struct {
	Key  string     `json:"key"`
	Name string     `json:"name"`
	BBox [4]float64 `json:"bbox"`
}

// DefaultRivers lists the monitored reaches in south-western Ghana's
// galamsey-affected basins plus the White Volta reference site. The
// collector may publish scenes for rivers outside this list; the registry
// exists so the dashboard can offer named presets.
func DefaultRivers() []River {
	return []River{
		{Key: "pra-twifo-praso", Name: "Pra River (Twifo Praso)", BBox: [4]float64{-1.58, 5.55, -1.52, 5.65}},
		{Key: "ankobra-prestea", Name: "Ankobra River (Prestea)", BBox: [4]float64{-2.15, 5.40, -2.05, 5.50}},
		{Key: "birim-kyebi", Name: "Birim River (Kyebi)", BBox: [4]float64{-0.55, 6.10, -0.45, 6.20}},
		{Key: "offin-dunkwa", Name: "Offin River (Dunkwa)", BBox: [4]float64{-1.85, 5.90, -1.75, 6.00}},
		{Key: "white-volta-pwalugu", Name: "White Volta (Pwalugu)", BBox: [4]float64{-0.85, 10.58, -0.83, 10.60}},
	}
}
