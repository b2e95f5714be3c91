package vec

// Vec3 представляет трехмерный вектор с целочисленными координатами
type Vec3 struct {
	X int
	Y int
	Z int
}

// XZ возвращает горизонтальную проекцию (колонку) вектора
func (v Vec3) XZ() Vec2 {
	return Vec2{X: v.X, Y: v.Z}
}

// ToChunkCoords преобразует мировые координаты в координаты чанка 16x16x16.
// Арифметический сдвиг округляет вниз и для отрицательных координат.
func (v Vec3) ToChunkCoords() Vec3 {
	return Vec3{X: v.X >> 4, Y: v.Y >> 4, Z: v.Z >> 4}
}

// LocalInChunk возвращает локальные координаты внутри чанка
func (v Vec3) LocalInChunk() Vec3 {
	return Vec3{X: v.X & 0xF, Y: v.Y & 0xF, Z: v.Z & 0xF}
}

// ChunkOrigin возвращает мировые координаты угла чанка
func (v Vec3) ChunkOrigin() Vec3 {
	return Vec3{X: v.X << 4, Y: v.Y << 4, Z: v.Z << 4}
}

// Equals проверяет равенство векторов
func (v Vec3) Equals(other Vec3) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}
