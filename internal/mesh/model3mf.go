package mesh

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"printquote/internal/geometry"
	perrors "printquote/pkg/errors"
)

// modelPartName is the canonical 3MF model part path inside the archive.
const modelPartName = "3D/3dmodel.model"

// model3MF mirrors the subset of the 3MF model document the pipeline needs.
// Element selectors are unqualified, so any model namespace matches.
type model3MF struct {
	XMLName   xml.Name `xml:"model"`
	Resources struct {
		Objects []struct {
			Mesh *struct {
				Vertices struct {
					Vertex []vertex3MF `xml:"vertex"`
				} `xml:"vertices"`
				Triangles struct {
					Triangle []triangle3MF `xml:"triangle"`
				} `xml:"triangles"`
			} `xml:"mesh"`
		} `xml:"object"`
	} `xml:"resources"`
}

type vertex3MF struct {
	X float64 `xml:"x,attr"`
	Y float64 `xml:"y,attr"`
	Z float64 `xml:"z,attr"`
}

type triangle3MF struct {
	V1 int `xml:"v1,attr"`
	V2 int `xml:"v2,attr"`
	V3 int `xml:"v3,attr"`
}

// decode3MFStrict reads the archive as a well-formed 3MF package: the model
// part must live at its canonical path and parse as a complete document.
// Multi-object models are merged into one solid.
func decode3MFStrict(data []byte) (*geometry.TriangleMesh, error) {
	z, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, perrors.Newf(perrors.ErrCodeParseFailed, "open 3mf archive: %v", err)
	}

	raw, err := readZipEntry(z, func(name string) bool { return name == modelPartName })
	if err != nil {
		return nil, err
	}

	var doc model3MF
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, perrors.Newf(perrors.ErrCodeParseFailed, "parse 3mf model: %v", err)
	}

	var vertices []geometry.Vec3
	var faces [][3]int
	for _, obj := range doc.Resources.Objects {
		if obj.Mesh == nil {
			continue
		}
		offset := len(vertices)
		for _, v := range obj.Mesh.Vertices.Vertex {
			vertices = append(vertices, geometry.Vec3{v.X, v.Y, v.Z})
		}
		for _, t := range obj.Mesh.Triangles.Triangle {
			faces = append(faces, [3]int{offset + t.V1, offset + t.V2, offset + t.V3})
		}
	}
	return buildFromArrays(vertices, faces)
}

// decode3MFLenient is the fallback for archives the strict parse rejects. It
// locates any entry whose path ends in the canonical part name regardless of
// prefix or case, then walks the XML token stream ignoring namespaces,
// collecting vertex and triangle elements in document order. Missing
// attributes default to zero.
func decode3MFLenient(data []byte) (*geometry.TriangleMesh, error) {
	z, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, perrors.Newf(perrors.ErrCodeParseFailed, "open 3mf archive: %v", err)
	}

	raw, err := readZipEntry(z, func(name string) bool {
		return strings.HasSuffix(strings.ToLower(name), "3dmodel.model")
	})
	if err != nil {
		return nil, err
	}

	var vertices []geometry.Vec3
	var faces [][3]int
	dec := xml.NewDecoder(bytes.NewReader(raw))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, perrors.Newf(perrors.ErrCodeParseFailed, "parse 3mf model: %v", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "vertex":
			vertices = append(vertices, geometry.Vec3{
				attrFloat(start, "x"),
				attrFloat(start, "y"),
				attrFloat(start, "z"),
			})
		case "triangle":
			faces = append(faces, [3]int{
				attrInt(start, "v1"),
				attrInt(start, "v2"),
				attrInt(start, "v3"),
			})
		}
	}
	return buildFromArrays(vertices, faces)
}

// readZipEntry returns the first archive entry matching the predicate.
func readZipEntry(z *zip.Reader, match func(string) bool) ([]byte, error) {
	for _, f := range z.File {
		if !match(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, perrors.Newf(perrors.ErrCodeParseFailed, "open model part: %v", err)
		}
		defer rc.Close()
		raw, err := io.ReadAll(rc)
		if err != nil {
			return nil, perrors.Newf(perrors.ErrCodeParseFailed, "read model part: %v", err)
		}
		return raw, nil
	}
	return nil, perrors.Newf(perrors.ErrCodeModelPartNotFound, "3mf model part not found (%s)", modelPartName)
}

func buildFromArrays(vertices []geometry.Vec3, faces [][3]int) (*geometry.TriangleMesh, error) {
	if len(vertices) == 0 || len(faces) == 0 {
		return nil, perrors.New(perrors.ErrCodeEmptyMesh, "3mf contains no mesh vertices/triangles")
	}
	m, err := geometry.NewTriangleMesh(vertices, faces)
	if err != nil {
		return nil, perrors.Newf(perrors.ErrCodeParseFailed, "build mesh: %v", err)
	}
	if len(m.Faces) == 0 {
		return nil, perrors.New(perrors.ErrCodeEmptyMesh, "3mf contains no usable triangles")
	}
	return m, nil
}

func attrFloat(el xml.StartElement, name string) float64 {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			if v, err := strconv.ParseFloat(strings.TrimSpace(a.Value), 64); err == nil {
				return v
			}
			return 0
		}
	}
	return 0
}

func attrInt(el xml.StartElement, name string) int {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			if v, err := strconv.Atoi(strings.TrimSpace(a.Value)); err == nil {
				return v
			}
			return 0
		}
	}
	return 0
}
