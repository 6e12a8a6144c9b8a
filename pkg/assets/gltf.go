package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/qmuntal/gltf"

	"github.com/taigrr/diorama/pkg/anim"
	"github.com/taigrr/diorama/pkg/math3d"
	"github.com/taigrr/diorama/pkg/models"
	"github.com/taigrr/diorama/pkg/scene"
)

// ErrUnsupported is returned for sources that are neither .gltf nor .glb.
var ErrUnsupported = errors.New("unsupported model format")

// GLTFLoader loads glTF 2.0 and GLB files from disk or over HTTP.
type GLTFLoader struct {
	// Options
	CalculateNormals bool
	SmoothNormals    bool

	Client *http.Client
	Logger *slog.Logger
}

// NewGLTFLoader creates a new glTF loader with default options.
func NewGLTFLoader() *GLTFLoader {
	return &GLTFLoader{
		CalculateNormals: true,
		SmoothNormals:    true,
		Client:           http.DefaultClient,
		Logger:           slog.Default(),
	}
}

// Load reads src, a local path or an http(s) URL, and builds a detached
// scene subtree from its default scene.
func (l *GLTFLoader) Load(ctx context.Context, src string) (*Asset, error) {
	ext := strings.ToLower(path.Ext(stripQuery(src)))
	if ext != ".gltf" && ext != ".glb" {
		return nil, &LoadError{Source: src, Op: "open", Err: fmt.Errorf("%w: %q", ErrUnsupported, ext)}
	}

	if err := ctx.Err(); err != nil {
		return nil, &LoadError{Source: src, Op: "open", Err: err}
	}

	var doc *gltf.Document
	if isRemote(src) {
		fsys, err := newHTTPFS(ctx, l.client(), src)
		if err != nil {
			return nil, &LoadError{Source: src, Op: "fetch", Err: err}
		}
		data, err := fsys.model()
		if err != nil {
			return nil, &LoadError{Source: src, Op: "fetch", Err: err}
		}
		doc = new(gltf.Document)
		if err := gltf.NewDecoderFS(bytes.NewReader(data), fsys).Decode(doc); err != nil {
			return nil, &LoadError{Source: src, Op: "open", Err: err}
		}
	} else {
		var err error
		if doc, err = gltf.Open(src); err != nil {
			return nil, &LoadError{Source: src, Op: "open", Err: err}
		}
	}

	a, err := l.build(doc, src)
	if err != nil {
		return nil, &LoadError{Source: src, Op: "decode", Err: err}
	}
	l.logger().Info("model loaded", "source", src, "meshes", a.Meshes, "triangles", a.Triangles, "clips", len(a.Clips))
	return a, nil
}

func (l *GLTFLoader) client() *http.Client {
	if l.Client == nil {
		return http.DefaultClient
	}
	return l.Client
}

func (l *GLTFLoader) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}

// builder carries per-document state while converting.
type builder struct {
	l     *GLTFLoader
	doc   *gltf.Document
	graph *scene.Graph
	nodes []*scene.Node
	mats  map[int]*models.Material
	names map[string]int
	asset *Asset
}

func (l *GLTFLoader) build(doc *gltf.Document, src string) (*Asset, error) {
	b := &builder{
		l:     l,
		doc:   doc,
		graph: scene.New(scene.WithLogger(l.logger())),
		nodes: make([]*scene.Node, len(doc.Nodes)),
		mats:  make(map[int]*models.Material),
		names: make(map[string]int),
		asset: &Asset{Source: src, Clips: anim.NewClipSet()},
	}

	root := scene.NewNode(strings.TrimSuffix(path.Base(stripQuery(src)), path.Ext(stripQuery(src))))
	b.asset.Root = root
	b.names[root.Name] = 1

	for i, n := range doc.Nodes {
		node, err := b.node(i, n)
		if err != nil {
			return nil, err
		}
		b.nodes[i] = node
	}
	for i, n := range doc.Nodes {
		for _, c := range n.Children {
			if c < 0 || c >= len(b.nodes) {
				return nil, fmt.Errorf("node %d: child %d out of range", i, c)
			}
			if err := b.graph.Attach(b.nodes[i], b.nodes[c]); err != nil {
				return nil, fmt.Errorf("node %d: %w", i, err)
			}
		}
	}

	for _, idx := range b.sceneRoots() {
		if idx < 0 || idx >= len(b.nodes) {
			return nil, fmt.Errorf("scene root %d out of range", idx)
		}
		if err := b.graph.Attach(root, b.nodes[idx]); err != nil {
			return nil, err
		}
	}

	for i, a := range doc.Animations {
		clip, err := b.clip(i, a)
		if err != nil {
			return nil, fmt.Errorf("animation %d: %w", i, err)
		}
		if clip.Empty() {
			continue
		}
		if _, dup := b.asset.Clips.Get(clip.Name()); dup {
			b.l.logger().Warn("duplicate clip name, keeping the last", "clip", clip.Name())
		}
		b.asset.Clips.Add(clip)
	}
	return b.asset, nil
}

// sceneRoots returns the top-level nodes of the default scene. Files
// without scenes use every parentless node.
func (b *builder) sceneRoots() []int {
	doc := b.doc
	if len(doc.Scenes) > 0 {
		s := 0
		if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
			s = *doc.Scene
		}
		return doc.Scenes[s].Nodes
	}
	child := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(child) {
				child[c] = true
			}
		}
	}
	var roots []int
	for i := range doc.Nodes {
		if !child[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

// uniqueName keeps node names distinct so tracks bind unambiguously.
func (b *builder) uniqueName(name string, idx int) string {
	if name == "" {
		name = fmt.Sprintf("node_%d", idx)
	}
	n := b.names[name]
	b.names[name] = n + 1
	if n == 0 {
		return name
	}
	return fmt.Sprintf("%s_%d", name, n)
}

func (b *builder) node(idx int, gn *gltf.Node) (*scene.Node, error) {
	node := scene.NewNode(b.uniqueName(gn.Name, idx))

	if m := gn.MatrixOrDefault(); m != gltf.DefaultMatrix {
		node.SetMatrix(math3d.Mat4(m))
	} else {
		t := gn.TranslationOrDefault()
		r := gn.RotationOrDefault()
		s := gn.ScaleOrDefault()
		node.SetPosition(math3d.V3(t[0], t[1], t[2]))
		node.SetRotation(math3d.Quat{W: r[3], X: r[0], Y: r[1], Z: r[2]}.Normalize())
		node.SetScale(math3d.V3(s[0], s[1], s[2]))
	}

	if gn.Mesh == nil {
		return node, nil
	}
	if *gn.Mesh < 0 || *gn.Mesh >= len(b.doc.Meshes) {
		return nil, fmt.Errorf("node %d: mesh %d out of range", idx, *gn.Mesh)
	}
	gm := b.doc.Meshes[*gn.Mesh]

	var prims []*scene.Node
	for pi, prim := range gm.Primitives {
		mesh, err := b.primitive(prim)
		if err != nil {
			return nil, fmt.Errorf("mesh %q primitive %d: %w", gm.Name, pi, err)
		}
		if mesh == nil {
			continue
		}
		b.asset.Meshes++
		b.asset.Triangles += mesh.TriangleCount()
		prims = append(prims, scene.NewMeshNode("", mesh, b.material(prim.Material)))
	}

	switch len(prims) {
	case 0:
	case 1:
		node.Mesh, node.Material = prims[0].Mesh, prims[0].Material
	default:
		for i, p := range prims {
			p.Name = fmt.Sprintf("%s_primitive_%d", node.Name, i)
			if err := b.graph.Attach(node, p); err != nil {
				return nil, err
			}
		}
	}
	return node, nil
}

// primitive converts one triangle primitive. Other topologies yield nil.
func (b *builder) primitive(prim *gltf.Primitive) (*models.Mesh, error) {
	if prim.Mode != gltf.PrimitiveTriangles && prim.Mode != 0 {
		return nil, nil
	}
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, errors.New("no POSITION attribute")
	}
	pos, w, err := readFloats(b.doc, posIdx)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}
	if w != 3 {
		return nil, fmt.Errorf("positions have %d components", w)
	}

	mesh := models.NewMesh("")
	mesh.Vertices = make([]models.MeshVertex, len(pos)/3)
	for i := range mesh.Vertices {
		mesh.Vertices[i].Position = math3d.V3(pos[i*3], pos[i*3+1], pos[i*3+2])
	}

	hasNormals := false
	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		nrm, w, err := readFloats(b.doc, idx)
		if err == nil && w == 3 && len(nrm) == len(pos) {
			for i := range mesh.Vertices {
				mesh.Vertices[i].Normal = math3d.V3(nrm[i*3], nrm[i*3+1], nrm[i*3+2])
			}
			hasNormals = true
		}
	}
	if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		uv, w, err := readFloats(b.doc, idx)
		if err == nil && w == 2 && len(uv)/2 == len(mesh.Vertices) {
			for i := range mesh.Vertices {
				mesh.Vertices[i].UV = math3d.V2(uv[i*2], uv[i*2+1])
			}
		}
	}

	var indices []int
	if prim.Indices != nil {
		indices, err = readIndices(b.doc, *prim.Indices)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
	} else {
		indices = make([]int, len(mesh.Vertices))
		for i := range indices {
			indices[i] = i
		}
	}
	for i := 0; i+2 < len(indices); i += 3 {
		f := models.Face{V: [3]int{indices[i], indices[i+1], indices[i+2]}}
		if f.V[0] >= len(mesh.Vertices) || f.V[1] >= len(mesh.Vertices) || f.V[2] >= len(mesh.Vertices) {
			return nil, fmt.Errorf("index out of range in face %d", i/3)
		}
		mesh.Faces = append(mesh.Faces, f)
	}

	if b.l.CalculateNormals && !hasNormals {
		if b.l.SmoothNormals {
			mesh.CalculateSmoothNormals()
		} else {
			mesh.CalculateNormals()
		}
	}
	mesh.CalculateBounds()
	return mesh, nil
}

// material returns the shared material for a glTF material index. Meshes
// using the same index share one *models.Material.
func (b *builder) material(idx *int) *models.Material {
	key := -1
	if idx != nil {
		key = *idx
	}
	if m, ok := b.mats[key]; ok {
		return m
	}
	m := models.NewMaterial("default", 0xffffff)
	if key >= 0 && key < len(b.doc.Materials) {
		gm := b.doc.Materials[key]
		m.Name = gm.Name
		if pbr := gm.PBRMetallicRoughness; pbr != nil {
			// glTF factors are linear; materials hold sRGB.
			c := pbr.BaseColorFactorOrDefault()
			srgb := colorful.LinearRgb(c[0], c[1], c[2]).Clamped()
			m.Color = [3]float64{srgb.R, srgb.G, srgb.B}
			m.Opacity = c[3]
			m.Metallic = pbr.MetallicFactorOrDefault()
			m.Roughness = pbr.RoughnessFactorOrDefault()
		}
		if gm.Extensions != nil {
			if _, unlit := gm.Extensions["KHR_materials_unlit"]; unlit {
				m.Shading = models.ShadingUnlit
			}
		}
	}
	b.mats[key] = m
	return m
}

func (b *builder) clip(idx int, ga *gltf.Animation) (*anim.Clip, error) {
	name := ga.Name
	if name == "" {
		name = fmt.Sprintf("animation_%d", idx)
	}
	var tracks []anim.Track
	for ci, ch := range ga.Channels {
		if ch.Target.Node == nil {
			continue
		}
		node := *ch.Target.Node
		if node < 0 || node >= len(b.nodes) {
			return nil, fmt.Errorf("channel %d: node %d out of range", ci, node)
		}
		var prop anim.Property
		switch ch.Target.Path {
		case gltf.TRSTranslation:
			prop = anim.PropTranslation
		case gltf.TRSRotation:
			prop = anim.PropRotation
		case gltf.TRSScale:
			prop = anim.PropScale
		default:
			b.l.logger().Debug("skipping channel", "clip", name, "path", ch.Target.Path)
			continue
		}
		if ch.Sampler < 0 || ch.Sampler >= len(ga.Samplers) {
			return nil, fmt.Errorf("channel %d: sampler %d out of range", ci, ch.Sampler)
		}
		s := ga.Samplers[ch.Sampler]
		times, _, err := readFloats(b.doc, s.Input)
		if err != nil {
			return nil, fmt.Errorf("channel %d input: %w", ci, err)
		}
		values, _, err := readFloats(b.doc, s.Output)
		if err != nil {
			return nil, fmt.Errorf("channel %d output: %w", ci, err)
		}
		tr := anim.Track{
			Target:   b.nodes[node].Name,
			Property: prop,
			Times:    times,
			Values:   values,
		}
		switch s.Interpolation {
		case gltf.InterpolationStep:
			tr.Interpolation = anim.InterpStep
		case gltf.InterpolationCubicSpline:
			tr.Interpolation = anim.InterpCubicSpline
		default:
			tr.Interpolation = anim.InterpLinear
		}
		tracks = append(tracks, tr)
	}
	return anim.NewClip(name, tracks)
}

func isRemote(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

func stripQuery(src string) string {
	if i := strings.IndexAny(src, "?#"); i >= 0 && isRemote(src) {
		return src[:i]
	}
	return filepath.ToSlash(src)
}
