// SPDX-License-Identifier: GPL-2.0-or-later

package glh

import (
	"fmt"
	"runtime"
	"strings"
	"unsafe"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gopxl/mainthread/v2"
)

const (
	ArrayBuffer         = gl.ARRAY_BUFFER
	ElementArrayBuffer  = gl.ELEMENT_ARRAY_BUFFER
	ShaderStorageBuffer = gl.SHADER_STORAGE_BUFFER
)

type Program struct {
	prog     uint32
	uniforms map[string]int32
}

func newProgram(shaders ...uint32) (*Program, error) {
	p := &Program{
		prog:     gl.CreateProgram(),
		uniforms: make(map[string]int32),
	}
	for _, s := range shaders {
		gl.AttachShader(p.prog, s)
	}
	gl.LinkProgram(p.prog)
	for _, s := range shaders {
		gl.DeleteShader(s)
	}
	var status int32
	gl.GetProgramiv(p.prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(p.prog, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(p.prog, logLength, nil, gl.Str(log))
		gl.DeleteProgram(p.prog)
		return nil, fmt.Errorf("Failed to link program: %v", log)
	}
	runtime.AddCleanup(p, deleteProgram, p.prog)
	return p, nil
}

func NewProgram(vertex, fragment string) (*Program, error) {
	vert, err := GetShader(vertex, gl.VERTEX_SHADER)
	if err != nil {
		return nil, err
	}
	frag, err := GetShader(fragment, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vert)
		return nil, err
	}
	return newProgram(vert, frag)
}

// NewComputeProgram needs GL 4.3 or newer.
func NewComputeProgram(compute string) (*Program, error) {
	c, err := GetShader(compute, gl.COMPUTE_SHADER)
	if err != nil {
		return nil, err
	}
	return newProgram(c)
}

func deleteProgram(p uint32) {
	mainthread.CallNonBlock(func() {
		gl.DeleteProgram(p)
	})
}

func (p *Program) Use() {
	gl.UseProgram(p.prog)
}

func (p *Program) GetAttribLocation(n string) uint32 {
	return uint32(gl.GetAttribLocation(p.prog, gl.Str(n+"\x00")))
}

func (p *Program) GetUniformLocation(n string) int32 {
	if l, ok := p.uniforms[n]; ok {
		return l
	}
	l := gl.GetUniformLocation(p.prog, gl.Str(n+"\x00"))
	p.uniforms[n] = l
	return l
}

// The setters expect the program to be in use. Unknown names are ignored
// like GL does for location -1.

func (p *Program) SetInt(n string, v int32) {
	gl.Uniform1i(p.GetUniformLocation(n), v)
}

func (p *Program) SetFloat(n string, v float32) {
	gl.Uniform1f(p.GetUniformLocation(n), v)
}

func (p *Program) SetVec3(n string, x, y, z float32) {
	gl.Uniform3f(p.GetUniformLocation(n), x, y, z)
}

func (p *Program) SetFloats(n string, v []float32) {
	if len(v) == 0 {
		return
	}
	gl.Uniform1fv(p.GetUniformLocation(n), int32(len(v)), &v[0])
}

func (p *Program) SetMat4(n string, m mgl32.Mat4) {
	gl.UniformMatrix4fv(p.GetUniformLocation(n), 1, false, &m[0])
}

// Dispatch runs a compute program over groups and waits for the writes to
// be visible to following shader and readback operations.
func (p *Program) Dispatch(x, y, z uint32) {
	gl.DispatchCompute(x, y, z)
	gl.MemoryBarrier(gl.SHADER_STORAGE_BARRIER_BIT | gl.SHADER_IMAGE_ACCESS_BARRIER_BIT |
		gl.TEXTURE_FETCH_BARRIER_BIT | gl.BUFFER_UPDATE_BARRIER_BIT | gl.TEXTURE_UPDATE_BARRIER_BIT)
}

type Buffer struct {
	buf    uint32
	target uint32
	size   int
}

func NewBuffer(target uint32) *Buffer {
	b := &Buffer{
		target: target,
	}
	gl.GenBuffers(1, &b.buf)
	runtime.AddCleanup(b, deleteBuffer, b.buf)
	return b
}

func deleteBuffer(buf uint32) {
	mainthread.CallNonBlock(func() {
		gl.DeleteBuffers(1, &buf)
	})
}

func (b *Buffer) Bind() {
	gl.BindBuffer(b.target, b.buf)
}

// BindBase attaches the buffer to an indexed binding point.
func (b *Buffer) BindBase(index uint32) {
	gl.BindBufferBase(b.target, index, b.buf)
}

func (b *Buffer) Size() int {
	return b.size
}

// SetData sets the data for this buffer. It needs to be bound first.
func (b *Buffer) SetData(size int, data unsafe.Pointer) {
	// It would be nice to just call b.Bind() first.
	// But even in the effective noop case this is not free.
	if size == b.size && data != nil {
		gl.BufferSubData(b.target, 0, size, data)
		return
	}
	gl.BufferData(b.target, size, data, gl.DYNAMIC_COPY)
	b.size = size
}

// SetSubData overwrites the first size bytes without respecifying the
// storage. It needs to be bound first.
func (b *Buffer) SetSubData(size int, data unsafe.Pointer) {
	gl.BufferSubData(b.target, 0, size, data)
}

// GetData copies size bytes back to data. It needs to be bound first and
// stalls until the GPU finished writing.
func (b *Buffer) GetData(size int, data unsafe.Pointer) {
	gl.GetBufferSubData(b.target, 0, size, data)
}

func Ptr(data interface{}) unsafe.Pointer {
	return gl.Ptr(data)
}

type VertexArray struct {
	a uint32
}

func NewVertexArray() *VertexArray {
	va := &VertexArray{}
	gl.GenVertexArrays(1, &va.a)
	runtime.AddCleanup(va, deleteVertexArray, va.a)
	return va
}

func deleteVertexArray(va uint32) {
	mainthread.CallNonBlock(func() {
		gl.DeleteVertexArrays(1, &va)
	})
}

func (va *VertexArray) Bind() {
	gl.BindVertexArray(va.a)
}

func GetShader(src string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csource, free := gl.Strs(src)
	defer free()
	length := int32(len(src))
	gl.ShaderSource(shader, 1, csource, &length)
	gl.CompileShader(shader)
	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("Failed to compile shader: %v", log)
	}
	return shader, nil
}

// Error returns the oldest pending GL error.
func Error() error {
	if e := gl.GetError(); e != gl.NO_ERROR {
		return fmt.Errorf("GL error 0x%x", e)
	}
	return nil
}
