package domain

// AssetID identifies an asset. IDs are assigned by the data source and stay
// stable for the whole run; all per-step iteration is in ascending AssetID.
type AssetID int64

// Asset is an immutable instrument identity, used only as a lookup key.
type Asset struct {
	ID     AssetID
	Symbol string
	Venue  string
}

// Equity builds an equity asset on the default venue.
func Equity(id AssetID, symbol string) Asset {
	return Asset{ID: id, Symbol: symbol, Venue: "NYSE"}
}
