package model

// CollectionMeta captures ERC721 collection metadata.
type CollectionMeta struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
	Symbol  string `json:"symbol,omitempty"`
}
