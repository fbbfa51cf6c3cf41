// Package mesh turns OBJ files into indexed, interleaved vertex data ready
// to be copied into vertex and index buffers.
package mesh

import (
	"encoding/binary"
	"io"
	"os"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/g3n/engine/loader/obj"
)

type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	Color    [3]float32
	TexCoord [2]float32
}

// Attribute describes one float vector inside Vertex.
type Attribute struct {
	Location   int
	Components int
	Offset     int
}

// Stride is the size of one interleaved Vertex.
var Stride = int(unsafe.Sizeof(Vertex{}))

// Layout lists the Vertex attributes in shader location order.
var Layout = []Attribute{
	{Location: 0, Components: 3, Offset: int(unsafe.Offsetof(Vertex{}.Position))},
	{Location: 1, Components: 3, Offset: int(unsafe.Offsetof(Vertex{}.Normal))},
	{Location: 2, Components: 3, Offset: int(unsafe.Offsetof(Vertex{}.Color))},
	{Location: 3, Components: 2, Offset: int(unsafe.Offsetof(Vertex{}.TexCoord))},
}

type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
}

// VertexSize is the byte size of the vertex data.
func (m *Mesh) VertexSize() int {
	return binary.Size(m.Vertices)
}

// IndexSize is the byte size of the index data.
func (m *Mesh) IndexSize() int {
	return binary.Size(m.Indices)
}

// Triangle is drawn when no mesh is configured.
func Triangle() *Mesh {
	normal := [3]float32{0, 0, 1}
	return &Mesh{
		Vertices: []Vertex{
			{Position: [3]float32{0, -0.5, 0}, Normal: normal, Color: [3]float32{1, 0, 0}, TexCoord: [2]float32{0.5, 0}},
			{Position: [3]float32{0.5, 0.5, 0}, Normal: normal, Color: [3]float32{0, 1, 0}, TexCoord: [2]float32{1, 1}},
			{Position: [3]float32{-0.5, 0.5, 0}, Normal: normal, Color: [3]float32{0, 0, 1}, TexCoord: [2]float32{0, 1}},
		},
		Indices: []uint32{0, 1, 2},
	}
}

// Load decodes the OBJ file at objPath. mtlPath may be empty.
func Load(objPath, mtlPath string) (*Mesh, error) {
	objFile, err := os.Open(objPath)
	if err != nil {
		return nil, errors.Wrap(err, "open mesh")
	}
	defer objFile.Close()

	var mtl io.Reader
	if mtlPath != "" {
		mtlFile, err := os.Open(mtlPath)
		if err != nil {
			return nil, errors.Wrap(err, "open material")
		}
		defer mtlFile.Close()
		mtl = mtlFile
	}

	m, err := Decode(objFile, mtl)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", objPath)
	}
	return m, nil
}

// Decode reads an OBJ stream and an optional MTL stream. Polygons are split
// into triangle fans, vertices sharing the same position, texture
// coordinate and normal indices are emitted once, and V is flipped so the
// texture origin is at the top left.
func Decode(objReader, mtlReader io.Reader) (*Mesh, error) {
	decoder, err := obj.DecodeReader(objReader, mtlReader)
	if err != nil {
		return nil, err
	}

	b := &builder{
		decoder: decoder,
		unique:  make(map[[3]int]uint32),
		mesh:    &Mesh{},
	}

	for _, decodedObj := range decoder.Objects {
		for _, face := range decodedObj.Faces {
			for i := 2; i < len(face.Vertices); i++ {
				b.addVertex(face, 0)
				b.addVertex(face, i-1)
				b.addVertex(face, i)
			}
		}
	}

	if len(b.mesh.Indices) == 0 {
		return nil, errors.New("mesh has no faces")
	}

	return b.mesh, nil
}

type builder struct {
	decoder *obj.Decoder
	unique  map[[3]int]uint32
	mesh    *Mesh
}

func (b *builder) addVertex(face obj.Face, faceIndex int) {
	key := [3]int{
		face.Vertices[faceIndex],
		indexAt(face.Uvs, faceIndex),
		indexAt(face.Normals, faceIndex),
	}

	index, exists := b.unique[key]
	if !exists {
		index = uint32(len(b.mesh.Vertices))
		b.mesh.Vertices = append(b.mesh.Vertices, b.vertex(face, key))
		b.unique[key] = index
	}

	b.mesh.Indices = append(b.mesh.Indices, index)
}

func (b *builder) vertex(face obj.Face, key [3]int) Vertex {
	d := b.decoder
	vert := Vertex{Color: [3]float32{1, 1, 1}}

	if p := key[0]; p >= 0 && p*3+2 < len(d.Vertices) {
		vert.Position = [3]float32{d.Vertices[p*3], d.Vertices[p*3+1], d.Vertices[p*3+2]}
	}

	if uv := key[1]; uv >= 0 && uv*2+1 < len(d.Uvs) {
		vert.TexCoord = [2]float32{d.Uvs[uv*2], 1.0 - d.Uvs[uv*2+1]}
	}

	if n := key[2]; n >= 0 && n*3+2 < len(d.Normals) {
		vert.Normal = [3]float32{d.Normals[n*3], d.Normals[n*3+1], d.Normals[n*3+2]}
	}

	if mat := d.Materials[face.Material]; mat != nil {
		vert.Color = [3]float32{mat.Diffuse.R, mat.Diffuse.G, mat.Diffuse.B}
	}

	return vert
}

func indexAt(indices []int, i int) int {
	if i >= len(indices) {
		return -1
	}
	return indices[i]
}
