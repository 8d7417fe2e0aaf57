package domain

// ItemStack - стопка предметов в контейнере или у торговца.
type ItemStack struct {
	ID       string `json:"id" yaml:"id"`
	Quantity int    `json:"quantity" yaml:"quantity"`
}
