package planet

// GridMesh builds the planet patch mesh: n×n quads spanning [-1, 1]², two triangles each.
//
// Parameters:
//   - n: quads per side
//
// Returns:
//   - []float32: interleaved x, y vertex positions, (n+1)² vertices
//   - []uint32: triangle indices, 6n² entries
func GridMesh(n int) ([]float32, []uint32) {
	if n < 1 {
		return nil, nil
	}
	row := n + 1
	vertices := make([]float32, 0, 2*row*row)
	for j := 0; j <= n; j++ {
		for i := 0; i <= n; i++ {
			vertices = append(vertices,
				float32(2*float64(i)/float64(n)-1),
				float32(2*float64(j)/float64(n)-1),
			)
		}
	}

	indices := make([]uint32, 0, 6*n*n)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			a := uint32(j*row + i)
			b := a + 1
			c := a + uint32(row)
			d := c + 1
			indices = append(indices, a, b, d, a, d, c)
		}
	}
	return vertices, indices
}
