package model

// Card is one catalog entry, in the short form pushed to worker nodes
type Card struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Faction string `json:"faction,omitempty"`
}

// Pack is one released card pack
type Pack struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// CardCatalog is the global static card data snapshot. It is read through
// the deck service and pushed to worker nodes when they start.
type CardCatalog struct {
	Cards      map[string]Card `json:"cards"`
	Packs      []Pack          `json:"packs"`
	Restricted []string        `json:"restricted,omitempty"`
}
