package world

// BlockID идентификатор типа блока. Хранится в упакованном массиве чанка,
// поэтому ширина значения влияет на занимаемую чанком память.
type BlockID uint32

// Базовые блоки, которые ставит генератор. Остальные ID назначает внешний
// реестр блоков.
const (
	AirBlockID BlockID = iota
	StoneBlockID
	DirtBlockID
	GrassBlockID
	SandBlockID
	WaterBlockID
)

// IsAir проверяет, пуст ли блок
func (id BlockID) IsAir() bool {
	return id == AirBlockID
}
