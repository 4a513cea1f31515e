package gldev

import (
	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/gopxl/mainthread/v2"
	"github.com/pkg/errors"

	"goradiance/envmap"
	"goradiance/glh"
	"goradiance/math/vec"
	"goradiance/scene"
)

const envVertexSource = `#version 430 core
layout(location = 0) in vec3 position;
layout(location = 1) in vec3 normal;
layout(location = 2) in vec2 uv;

uniform mat4 view_proj;
uniform mat4 model;
uniform mat4 normal_matrix;

out vec3 v_pos;
out vec3 v_normal;
out vec2 v_uv;

void main() {
	vec4 w = model * vec4(position, 1.0);
	v_pos = w.xyz;
	v_normal = mat3(normal_matrix) * normal;
	v_uv = uv;
	gl_Position = view_proj * w;
}
` + "\x00"

const envFragmentSource = `#version 430 core
in vec3 v_pos;
in vec3 v_normal;
in vec2 v_uv;

uniform sampler2D albedo;
uniform sampler2D normal_map;
uniform int use_normal_map;

layout(location = 0) out vec4 out_albedo;
layout(location = 1) out vec4 out_normal;

vec3 perturb(vec3 n) {
	vec3 dp1 = dFdx(v_pos);
	vec3 dp2 = dFdy(v_pos);
	vec2 duv1 = dFdx(v_uv);
	vec2 duv2 = dFdy(v_uv);
	vec3 dp2perp = cross(dp2, n);
	vec3 dp1perp = cross(n, dp1);
	vec3 t = dp2perp * duv1.x + dp1perp * duv2.x;
	vec3 b = dp2perp * duv1.y + dp1perp * duv2.y;
	float s = inversesqrt(max(dot(t, t), dot(b, b)));
	vec3 ts = texture(normal_map, v_uv).rgb * 2.0 - 1.0;
	return normalize(mat3(t * s, b * s, n) * ts);
}

void main() {
	vec3 n = normalize(v_normal);
	if (use_normal_map != 0) {
		n = perturb(n);
	}
	// alpha carries the sky visibility, the clear colour has 1
	out_albedo = vec4(texture(albedo, v_uv).rgb, 0.0);
	out_normal = vec4(n, 0.0);
}
` + "\x00"

type gpuMesh struct {
	vao   *glh.VertexArray
	vbo   *glh.Buffer
	ebo   *glh.Buffer
	count int32
}

type rasterizer struct {
	prog   *glh.Program
	meshes map[*scene.Mesh]*gpuMesh
}

func newRasterizer() (*rasterizer, error) {
	p, err := glh.NewProgram(envVertexSource, envFragmentSource)
	if err != nil {
		return nil, errors.Wrap(err, "environment map shaders")
	}
	return &rasterizer{prog: p, meshes: make(map[*scene.Mesh]*gpuMesh)}, nil
}

func (r *rasterizer) mesh(m *scene.Mesh) *gpuMesh {
	if g, ok := r.meshes[m]; ok {
		return g
	}
	g := &gpuMesh{
		vao:   glh.NewVertexArray(),
		vbo:   glh.NewBuffer(glh.ArrayBuffer),
		ebo:   glh.NewBuffer(glh.ElementArrayBuffer),
		count: int32(len(m.Indices)),
	}
	g.vao.Bind()
	g.vbo.Bind()
	g.vbo.SetData(len(m.Vertices)*vertexSize, glh.Ptr(m.Vertices))
	g.ebo.Bind()
	g.ebo.SetData(len(m.Indices)*4, glh.Ptr(m.Indices))
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, vertexSize, 0)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, vertexSize, 12)
	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointerWithOffset(2, 2, gl.FLOAT, false, vertexSize, 24)
	gl.BindVertexArray(0)
	r.meshes[m] = g
	return g
}

// vertexSize is the stride of scene.Vertex: position, normal, uv.
const vertexSize = 32

var (
	skyClear    = [4]float32{0, 0, 0, 1}
	normalClear = [4]float32{0, 0, 0, 0}
)

// RenderEnvironmentMaps rasterizes the G-buffer atlas in one framebuffer,
// one viewport per probe face, and reads it back.
func (d *Device) RenderEnvironmentMaps(s *scene.Scene, origins []vec.Vec3, size int, near, far float32) (*envmap.Atlas, error) {
	a := envmap.NewAtlas(origins, size, near, far)
	if len(origins) == 0 {
		return a, nil
	}
	var err error
	mainthread.Call(func() {
		err = d.renderAtlas(s, a)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (d *Device) renderAtlas(s *scene.Scene, a *envmap.Atlas) error {
	if d.raster == nil {
		r, err := newRasterizer()
		if err != nil {
			return err
		}
		d.raster = r
	}
	r := d.raster
	w, h := a.Width(), a.Height()
	fb, err := glh.NewFramebuffer(w, h, glh.RGBA32F, glh.RGBA32F)
	if err != nil {
		return errors.Wrap(err, "environment map atlas")
	}
	fb.Bind()
	defer fb.Unbind()
	gl.ClearBufferfv(gl.COLOR, 0, &skyClear[0])
	gl.ClearBufferfv(gl.COLOR, 1, &normalClear[0])
	gl.ClearDepth(1)
	gl.Clear(gl.DEPTH_BUFFER_BIT)
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Disable(gl.CULL_FACE)

	r.prog.Use()
	r.prog.SetInt("albedo", 0)
	r.prog.SetInt("normal_map", 1)
	proj := envmap.Projection(a.Near, a.Far)
	size := int32(a.Size)
	for p, o := range a.Origins {
		for f := vec.AxisNormal(0); f < envmap.FaceCount; f++ {
			gl.Viewport(int32(f)*size, int32(p)*size, size, size)
			r.prog.SetMat4("view_proj", proj.Mul4(envmap.View(o, f)))
			for _, m := range s.Models {
				r.draw(m)
			}
		}
	}

	colour := make([]float32, w*h*4)
	normal := make([]float32, w*h*4)
	depth := make([]float32, w*h)
	fb.ReadColour(0, colour)
	fb.ReadColour(1, normal)
	fb.ReadDepth(depth)
	if err := glh.Error(); err != nil {
		return errors.Wrap(err, "environment map readback")
	}
	for i := range a.Texels {
		t := &a.Texels[i]
		t.SkyVisibility = colour[i*4+3]
		if t.SkyVisibility >= 1 {
			continue
		}
		t.Albedo = vec.Vec3{X: colour[i*4], Y: colour[i*4+1], Z: colour[i*4+2]}
		t.Normal = vec.Vec3{X: normal[i*4], Y: normal[i*4+1], Z: normal[i*4+2]}
		t.Depth = depth[i]
	}
	return nil
}

func (r *rasterizer) draw(m *scene.Model) {
	g := r.mesh(m.Mesh)
	r.prog.SetMat4("model", m.WorldMatrix())
	r.prog.SetMat4("normal_matrix", m.NormalMatrix().Mat4())
	gl.ActiveTexture(gl.TEXTURE0)
	if m.Albedo != nil {
		m.Albedo.Bind()
	}
	if m.Normal != nil {
		gl.ActiveTexture(gl.TEXTURE1)
		m.Normal.Bind()
		r.prog.SetInt("use_normal_map", 1)
	} else {
		r.prog.SetInt("use_normal_map", 0)
	}
	g.vao.Bind()
	gl.DrawElements(gl.TRIANGLES, g.count, gl.UNSIGNED_INT, nil)
	gl.BindVertexArray(0)
}
