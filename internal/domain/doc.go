// Package domain models Sentinel-2 river scenes and the turbidity index
// computation over them.
//
// # Data Source
//
// Scenes originate from Sentinel-2 L2A surface reflectance products. The
// upstream collector service queries a STAC catalog per river reach, reads
// the Red (B04), Green (B03), and near-infrared (B08) bands at reduced
// resolution, and publishes each scene as flat JSON to the Kafka source
// topic. Band pixels arrive as row-major float64 arrays scaled to surface
// reflectance (roughly 0.0–1.0 over land and water).
//
// # Indices
//
// NDTI (Normalized Difference Turbidity Index):
//
//	(Red − Green) / (Red + Green)
//
//	Proxy for suspended sediment concentration. Sediment-laden water
//	reflects more red than green, so higher values mean muddier water.
//	Typical river values fall between −0.3 (clear) and +0.4 (heavy
//	sediment). Pixels where Red + Green == 0 carry no signal and are
//	marked NaN rather than 0, so they can never bias a summary toward
//	"clear".
//
// NDWI (Normalized Difference Water Index), used for the water mask:
//
//	(Green − NIR) / (Green + NIR)
//
//	Water absorbs near-infrared strongly, vegetation reflects it, so
//	values above the threshold classify as water. The standard cutoff is
//	0.0; muddy water reflects more NIR than clear water, so deployments
//	over sediment-heavy rivers tune the threshold down to −0.05 or −0.1.
//	Pixels with a zero denominator classify as non-water (fail-safe
//	exclusion: a doubtful pixel must not enter the summary).
//
// # Summaries
//
// A scene summary is the mean NDTI over water pixels, ignoring NaN pixels.
// Scenes with fewer than the configured minimum of valid water pixels
// produce an explicit no-data result instead of a number — a dry or
// cloud-obscured scene must never report turbidity 0. Means outside the
// plausibility bounds (default −0.5..0.8) are rejected as sensor or cloud
// noise.
//
// Status classification over the masked mean:
//
//	mean > 0.1   critical (heavy sediment load)
//	mean > 0.0   moderate (visible turbidity)
//	otherwise    clear
//
// # ID Generation
//
// Scene IDs are deterministic SHA-256 hashes of river|time|dimensions when
// the collector does not supply one. This keeps summary production
// idempotent under replay: reprocessing the same scene produces the same
// key on the sink topic. See [generateSceneID].
package domain
