package telemetry

// TracerName identifies spans emitted by this service.
const TracerName = "github.com/samirrijal/parcelview"

// Span names used for instrumentation.
const (
	// Proximity search
	SpanFindNear     = "property.find_near"
	SpanIndexRefresh = "search.index_refresh"

	// Rendering
	SpanRender     = "image.render"
	SpanImageFetch = "image.fetch"

	// Import
	SpanImport = "property.import"
)

// Span attribute keys.
const (
	AttrPropertyID = "parcelview.property_id"
	AttrBackend    = "parcelview.search_backend"
	AttrRadius     = "parcelview.radius_m"
	AttrResults    = "parcelview.results"
	AttrOverlays   = "parcelview.overlays"
	AttrSource     = "parcelview.import_source"
)
