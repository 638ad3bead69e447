package apis

const (
	// query parameters of the read surface
	Start    = "start"
	End      = "end"
	Format   = "format"
	Addr     = "addr"
	Exploded = "exploded"

	FormatCSV  = "csv"
	FormatJSON = "json"
)
