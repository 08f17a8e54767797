package stage

import (
	"fmt"
	"math"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// bloomThreshold is the luminance floor for the bright pass.
const bloomThreshold = 0.55

// blurPasses is the number of ping-pong gaussian iterations.
const blurPasses = 4

// glOffset converts a byte offset to unsafe.Pointer for OpenGL VBO offset params.
func glOffset(n int) unsafe.Pointer { return gl.PtrOffset(n) }

type Renderer struct {
	scene *Scene

	// Programs.
	meshProg   uint32
	swarmProg  uint32
	starProg   uint32
	brightProg uint32
	blurProg   uint32
	compProg   uint32

	// Orb geometry.
	orbVAO, orbVBO, orbEBO uint32
	orbCount               int32

	// Knot geometry.
	knotVAO, knotVBO, knotEBO uint32
	knotCount                 int32

	// Swarm: shared cube mesh plus a streaming per-instance buffer.
	swarmVAO, swarmVBO, swarmEBO uint32
	swarmInstVBO                 uint32
	swarmCount                   int32
	instBuf                      []float32

	// Starfield.
	starVAO, starVBO uint32
	starCount        int32

	// Fullscreen quad for the post passes.
	quadVAO, quadVBO uint32

	// Mesh uniforms.
	uProj, uView, uModel                     int32
	uColor, uEmissive, uEmissiveStr, uFade   int32
	swUProj, swUView                         int32
	swUColor, swUEmissive, swUEmStr, swUFade int32

	// Star uniforms.
	stUProj, stUView, stURot, stUPointScale int32
	stUColor, stUFade                       int32

	// Post uniforms.
	brUScene, brUThreshold        int32
	blUTex, blUTexel, blUHoriz    int32
	cmpUScene, cmpUBloom, cmpUStr int32

	// Offscreen targets. Ping textures are half resolution.
	sceneFBO, sceneTex, sceneDepth uint32
	pingFBO, pingTex               [2]uint32
	fbW, fbH                       int
}

func NewRenderer(scene *Scene) (*Renderer, error) {
	r := &Renderer{scene: scene}

	progs := []struct {
		dst        *uint32
		vert, frag string
		name       string
	}{
		{&r.meshProg, meshVertSrc, meshFragSrc, "mesh"},
		{&r.swarmProg, swarmVertSrc, meshFragSrc, "swarm"},
		{&r.starProg, starVertSrc, starFragSrc, "star"},
		{&r.brightProg, quadVertSrc, brightFragSrc, "bright"},
		{&r.blurProg, quadVertSrc, blurFragSrc, "blur"},
		{&r.compProg, quadVertSrc, compositeFragSrc, "composite"},
	}
	for _, p := range progs {
		prog, err := linkProgram(p.vert, p.frag)
		if err != nil {
			r.Destroy()
			return nil, fmt.Errorf("%s program: %w", p.name, err)
		}
		*p.dst = prog
	}

	spec := scene.Spec()
	r.orbVAO, r.orbVBO, r.orbEBO, r.orbCount = uploadMesh(icosphere(spec.OrbSubdiv))
	r.knotVAO, r.knotVBO, r.knotEBO, r.knotCount = uploadMesh(torusKnot(2, 3, spec.KnotSegments, spec.KnotSides, 1.1, 0.28))
	r.swarmVAO, r.swarmVBO, r.swarmEBO, r.swarmCount = uploadMesh(cubeMesh())
	r.instBuf = make([]float32, 0, spec.Swarm*5)

	// Per-instance attributes live in their own streaming buffer.
	gl.BindVertexArray(r.swarmVAO)
	gl.GenBuffers(1, &r.swarmInstVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.swarmInstVBO)
	gl.BufferData(gl.ARRAY_BUFFER, spec.Swarm*5*4, nil, gl.STREAM_DRAW)
	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointer(2, 4, gl.FLOAT, false, 5*4, glOffset(0))
	gl.VertexAttribDivisor(2, 1)
	gl.EnableVertexAttribArray(3)
	gl.VertexAttribPointer(3, 1, gl.FLOAT, false, 5*4, glOffset(4*4))
	gl.VertexAttribDivisor(3, 1)

	// Starfield: x y z size, drawn as points.
	stars := starfield(spec.Stars, 0x57A125)
	r.starCount = int32(spec.Stars)
	gl.GenVertexArrays(1, &r.starVAO)
	gl.GenBuffers(1, &r.starVBO)
	gl.BindVertexArray(r.starVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.starVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(stars)*4, gl.Ptr(&stars[0]), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 4*4, glOffset(0))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 1, gl.FLOAT, false, 4*4, glOffset(3*4))

	// Fullscreen triangle pair in NDC.
	quad := [12]float32{
		-1, -1, 1, -1, 1, 1,
		-1, -1, 1, 1, -1, 1,
	}
	gl.GenVertexArrays(1, &r.quadVAO)
	gl.GenBuffers(1, &r.quadVBO)
	gl.BindVertexArray(r.quadVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.quadVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(quad)*4, gl.Ptr(&quad[0]), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 2*4, glOffset(0))

	// Mesh uniforms.
	gl.UseProgram(r.meshProg)
	r.uProj = gl.GetUniformLocation(r.meshProg, gl.Str("uProj\x00"))
	r.uView = gl.GetUniformLocation(r.meshProg, gl.Str("uView\x00"))
	r.uModel = gl.GetUniformLocation(r.meshProg, gl.Str("uModel\x00"))
	r.uColor = gl.GetUniformLocation(r.meshProg, gl.Str("uColor\x00"))
	r.uEmissive = gl.GetUniformLocation(r.meshProg, gl.Str("uEmissive\x00"))
	r.uEmissiveStr = gl.GetUniformLocation(r.meshProg, gl.Str("uEmissiveStrength\x00"))
	r.uFade = gl.GetUniformLocation(r.meshProg, gl.Str("uFade\x00"))

	gl.UseProgram(r.swarmProg)
	r.swUProj = gl.GetUniformLocation(r.swarmProg, gl.Str("uProj\x00"))
	r.swUView = gl.GetUniformLocation(r.swarmProg, gl.Str("uView\x00"))
	r.swUColor = gl.GetUniformLocation(r.swarmProg, gl.Str("uColor\x00"))
	r.swUEmissive = gl.GetUniformLocation(r.swarmProg, gl.Str("uEmissive\x00"))
	r.swUEmStr = gl.GetUniformLocation(r.swarmProg, gl.Str("uEmissiveStrength\x00"))
	r.swUFade = gl.GetUniformLocation(r.swarmProg, gl.Str("uFade\x00"))

	gl.UseProgram(r.starProg)
	r.stUProj = gl.GetUniformLocation(r.starProg, gl.Str("uProj\x00"))
	r.stUView = gl.GetUniformLocation(r.starProg, gl.Str("uView\x00"))
	r.stURot = gl.GetUniformLocation(r.starProg, gl.Str("uRot\x00"))
	r.stUPointScale = gl.GetUniformLocation(r.starProg, gl.Str("uPointScale\x00"))
	r.stUColor = gl.GetUniformLocation(r.starProg, gl.Str("uColor\x00"))
	r.stUFade = gl.GetUniformLocation(r.starProg, gl.Str("uFade\x00"))

	gl.UseProgram(r.brightProg)
	r.brUScene = gl.GetUniformLocation(r.brightProg, gl.Str("uScene\x00"))
	r.brUThreshold = gl.GetUniformLocation(r.brightProg, gl.Str("uThreshold\x00"))
	gl.Uniform1i(r.brUScene, 0)
	gl.Uniform1f(r.brUThreshold, bloomThreshold)

	gl.UseProgram(r.blurProg)
	r.blUTex = gl.GetUniformLocation(r.blurProg, gl.Str("uTex\x00"))
	r.blUTexel = gl.GetUniformLocation(r.blurProg, gl.Str("uTexel\x00"))
	r.blUHoriz = gl.GetUniformLocation(r.blurProg, gl.Str("uHorizontal\x00"))
	gl.Uniform1i(r.blUTex, 0)

	gl.UseProgram(r.compProg)
	r.cmpUScene = gl.GetUniformLocation(r.compProg, gl.Str("uScene\x00"))
	r.cmpUBloom = gl.GetUniformLocation(r.compProg, gl.Str("uBloom\x00"))
	r.cmpUStr = gl.GetUniformLocation(r.compProg, gl.Str("uStrength\x00"))
	gl.Uniform1i(r.cmpUScene, 0)
	gl.Uniform1i(r.cmpUBloom, 1)

	gl.Enable(gl.PROGRAM_POINT_SIZE)
	gl.BindVertexArray(0)
	return r, nil
}

// uploadMesh pushes a position+normal mesh into a fresh VAO/VBO/EBO.
func uploadMesh(m mesh) (vao, vbo, ebo uint32, count int32) {
	gl.GenVertexArrays(1, &vao)
	gl.GenBuffers(1, &vbo)
	gl.GenBuffers(1, &ebo)
	gl.BindVertexArray(vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(m.Verts)*4, gl.Ptr(&m.Verts[0]), gl.STATIC_DRAW)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(m.Indices)*4, gl.Ptr(&m.Indices[0]), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 6*4, glOffset(0))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 3, gl.FLOAT, false, 6*4, glOffset(3*4))
	return vao, vbo, ebo, int32(len(m.Indices))
}

// Resize rebuilds the offscreen targets for a new framebuffer size.
func (r *Renderer) Resize(fbW, fbH int) {
	if fbW <= 0 || fbH <= 0 || (fbW == r.fbW && fbH == r.fbH) {
		return
	}
	r.destroyTargets()
	r.fbW, r.fbH = fbW, fbH

	gl.GenFramebuffers(1, &r.sceneFBO)
	gl.BindFramebuffer(gl.FRAMEBUFFER, r.sceneFBO)
	gl.GenTextures(1, &r.sceneTex)
	gl.BindTexture(gl.TEXTURE_2D, r.sceneTex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA16F, int32(fbW), int32(fbH), 0, gl.RGBA, gl.FLOAT, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, r.sceneTex, 0)
	gl.GenRenderbuffers(1, &r.sceneDepth)
	gl.BindRenderbuffer(gl.RENDERBUFFER, r.sceneDepth)
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT24, int32(fbW), int32(fbH))
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, r.sceneDepth)

	// Half resolution is plenty for the blur and halves the fill cost.
	hw, hh := int32(fbW/2), int32(fbH/2)
	if hw < 1 {
		hw = 1
	}
	if hh < 1 {
		hh = 1
	}
	for i := 0; i < 2; i++ {
		gl.GenFramebuffers(1, &r.pingFBO[i])
		gl.BindFramebuffer(gl.FRAMEBUFFER, r.pingFBO[i])
		gl.GenTextures(1, &r.pingTex[i])
		gl.BindTexture(gl.TEXTURE_2D, r.pingTex[i])
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA16F, hw, hh, 0, gl.RGBA, gl.FLOAT, nil)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, r.pingTex[i], 0)
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

// Draw renders one frame: scene to an offscreen target, bright pass,
// ping-pong blur, composite to the default framebuffer.
func (r *Renderer) Draw(fbW, fbH int) {
	if fbW != r.fbW || fbH != r.fbH {
		r.Resize(fbW, fbH)
	}
	s := r.scene

	proj := mgl32.Perspective(mgl32.DegToRad(50), float32(fbW)/float32(fbH), 0.1, 200)
	view := mgl32.LookAtV(
		mgl32.Vec3{float32(s.CamX), float32(s.CamY), float32(s.CamZ)},
		mgl32.Vec3{0, 0, 0},
		mgl32.Vec3{0, 1, 0},
	)

	gl.BindFramebuffer(gl.FRAMEBUFFER, r.sceneFBO)
	gl.Viewport(0, 0, int32(fbW), int32(fbH))
	gl.ClearColor(0.015, 0.02, 0.045, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	// Stars first, no depth writes so meshes always pass in front.
	gl.Disable(gl.DEPTH_TEST)
	gl.UseProgram(r.starProg)
	gl.UniformMatrix4fv(r.stUProj, 1, false, &proj[0])
	gl.UniformMatrix4fv(r.stUView, 1, false, &view[0])
	gl.Uniform1f(r.stURot, float32(s.StarRot))
	gl.Uniform1f(r.stUPointScale, float32(fbH)/160)
	gl.Uniform3f(r.stUColor, 0.75, 0.8, 1.0)
	gl.Uniform1f(r.stUFade, float32(0.4+0.6*s.Fade))
	gl.BindVertexArray(r.starVAO)
	gl.DrawArrays(gl.POINTS, 0, r.starCount)

	gl.Enable(gl.DEPTH_TEST)
	gl.Enable(gl.CULL_FACE)

	// Orb.
	gl.UseProgram(r.meshProg)
	gl.UniformMatrix4fv(r.uProj, 1, false, &proj[0])
	gl.UniformMatrix4fv(r.uView, 1, false, &view[0])
	gl.Uniform1f(r.uEmissiveStr, float32(s.EmissiveStrength))
	gl.Uniform1f(r.uFade, float32(s.Fade))

	orbModel := mgl32.Translate3D(float32(s.OrbX), float32(s.OrbY), float32(s.OrbZ)).
		Mul4(mgl32.HomogRotate3DY(float32(s.OrbRot))).
		Mul4(mgl32.Scale3D(float32(s.OrbScale), float32(s.OrbScale), float32(s.OrbScale)))
	gl.UniformMatrix4fv(r.uModel, 1, false, &orbModel[0])
	setColor3(r.uColor, s.OrbMat.Base)
	setColor3(r.uEmissive, s.OrbMat.Emissive)
	gl.BindVertexArray(r.orbVAO)
	gl.DrawElements(gl.TRIANGLES, r.orbCount, gl.UNSIGNED_INT, glOffset(0))

	// Knot.
	knotModel := mgl32.Translate3D(float32(s.KnotX), float32(s.KnotY), float32(s.KnotZ)).
		Mul4(mgl32.HomogRotate3DX(float32(s.KnotRotX))).
		Mul4(mgl32.HomogRotate3DY(float32(s.KnotRotY)))
	gl.UniformMatrix4fv(r.uModel, 1, false, &knotModel[0])
	setColor3(r.uColor, s.KnotMat.Base)
	setColor3(r.uEmissive, s.KnotMat.Emissive)
	gl.BindVertexArray(r.knotVAO)
	gl.DrawElements(gl.TRIANGLES, r.knotCount, gl.UNSIGNED_INT, glOffset(0))

	// Swarm: refresh the instance buffer and draw in one call.
	r.instBuf = r.instBuf[:0]
	for i := range s.Swarm {
		inst := &s.Swarm[i]
		r.instBuf = append(r.instBuf,
			float32(inst.X), float32(inst.Y), float32(inst.Z),
			float32(inst.Scale), float32(inst.Rot))
	}
	if len(r.instBuf) > 0 {
		gl.UseProgram(r.swarmProg)
		gl.UniformMatrix4fv(r.swUProj, 1, false, &proj[0])
		gl.UniformMatrix4fv(r.swUView, 1, false, &view[0])
		gl.Uniform1f(r.swUEmStr, float32(s.EmissiveStrength*0.5))
		gl.Uniform1f(r.swUFade, float32(s.Fade))
		setColor3(r.swUColor, s.SwarmColor())
		setColor3(r.swUEmissive, s.SwarmMat.Emissive)
		gl.BindVertexArray(r.swarmVAO)
		gl.BindBuffer(gl.ARRAY_BUFFER, r.swarmInstVBO)
		gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(r.instBuf)*4, gl.Ptr(&r.instBuf[0]))
		gl.DrawElementsInstanced(gl.TRIANGLES, r.swarmCount, gl.UNSIGNED_INT, glOffset(0), int32(len(s.Swarm)))
	}

	gl.Disable(gl.CULL_FACE)
	gl.Disable(gl.DEPTH_TEST)

	// Bright pass into ping[0] at half resolution.
	hw, hh := int32(fbW/2), int32(fbH/2)
	if hw < 1 {
		hw = 1
	}
	if hh < 1 {
		hh = 1
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, r.pingFBO[0])
	gl.Viewport(0, 0, hw, hh)
	gl.UseProgram(r.brightProg)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, r.sceneTex)
	gl.BindVertexArray(r.quadVAO)
	gl.DrawArrays(gl.TRIANGLES, 0, 6)

	// Separable blur, alternating direction each pass.
	gl.UseProgram(r.blurProg)
	gl.Uniform2f(r.blUTexel, 1/float32(hw), 1/float32(hh))
	src := 0
	for i := 0; i < blurPasses*2; i++ {
		dst := 1 - src
		gl.BindFramebuffer(gl.FRAMEBUFFER, r.pingFBO[dst])
		if i%2 == 0 {
			gl.Uniform1i(r.blUHoriz, 1)
		} else {
			gl.Uniform1i(r.blUHoriz, 0)
		}
		gl.BindTexture(gl.TEXTURE_2D, r.pingTex[src])
		gl.DrawArrays(gl.TRIANGLES, 0, 6)
		src = dst
	}

	// Composite to the window.
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, int32(fbW), int32(fbH))
	gl.UseProgram(r.compProg)
	gl.Uniform1f(r.cmpUStr, float32(math.Max(s.BloomStrength, 0)))
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, r.sceneTex)
	gl.ActiveTexture(gl.TEXTURE1)
	gl.BindTexture(gl.TEXTURE_2D, r.pingTex[src])
	gl.DrawArrays(gl.TRIANGLES, 0, 6)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindVertexArray(0)
}

func setColor3(loc int32, c RGB) {
	gl.Uniform3f(loc, float32(c.R), float32(c.G), float32(c.B))
}

func (r *Renderer) destroyTargets() {
	if r.sceneFBO != 0 {
		gl.DeleteFramebuffers(1, &r.sceneFBO)
		gl.DeleteTextures(1, &r.sceneTex)
		gl.DeleteRenderbuffers(1, &r.sceneDepth)
		r.sceneFBO, r.sceneTex, r.sceneDepth = 0, 0, 0
	}
	for i := 0; i < 2; i++ {
		if r.pingFBO[i] != 0 {
			gl.DeleteFramebuffers(1, &r.pingFBO[i])
			gl.DeleteTextures(1, &r.pingTex[i])
			r.pingFBO[i], r.pingTex[i] = 0, 0
		}
	}
}

func (r *Renderer) Destroy() {
	r.destroyTargets()
	for _, id := range []uint32{r.orbVBO, r.orbEBO, r.knotVBO, r.knotEBO, r.swarmVBO, r.swarmEBO, r.swarmInstVBO, r.starVBO, r.quadVBO} {
		if id != 0 {
			gl.DeleteBuffers(1, &id)
		}
	}
	for _, id := range []uint32{r.orbVAO, r.knotVAO, r.swarmVAO, r.starVAO, r.quadVAO} {
		if id != 0 {
			gl.DeleteVertexArrays(1, &id)
		}
	}
	for _, id := range []uint32{r.meshProg, r.swarmProg, r.starProg, r.brightProg, r.blurProg, r.compProg} {
		if id != 0 {
			gl.DeleteProgram(id)
		}
	}
}
