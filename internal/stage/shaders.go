package stage

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// Mesh vertex shader: orb and knot, position+normal.
const meshVertSrc = `#version 410 core

layout(location = 0) in vec3 aPos;
layout(location = 1) in vec3 aNormal;

uniform mat4 uProj;
uniform mat4 uView;
uniform mat4 uModel;

out vec3 vNormal;

void main() {
    vNormal = mat3(uModel) * aNormal;
    gl_Position = uProj * uView * uModel * vec4(aPos, 1.0);
}
` + "\x00"

// Swarm vertex shader: instanced cubes, per-instance position/scale and
// spin packed into two attributes.
const swarmVertSrc = `#version 410 core

layout(location = 0) in vec3 aPos;
layout(location = 1) in vec3 aNormal;
layout(location = 2) in vec4 aInst; // xyz position, w scale
layout(location = 3) in float aInstRot;

uniform mat4 uProj;
uniform mat4 uView;

out vec3 vNormal;

void main() {
    float c = cos(aInstRot);
    float s = sin(aInstRot);
    mat3 rot = mat3(c, 0.0, -s,
                    0.0, 1.0, 0.0,
                    s, 0.0, c);
    vec3 pos = rot * (aPos * aInst.w) + aInst.xyz;
    vNormal = rot * aNormal;
    gl_Position = uProj * uView * vec4(pos, 1.0);
}
` + "\x00"

// Mesh fragment shader: two directional lights plus a hemispheric
// ambient term standing in for an environment map.
const meshFragSrc = `#version 410 core

uniform vec3 uColor;
uniform vec3 uEmissive;
uniform float uEmissiveStrength;
uniform float uFade;

in vec3 vNormal;
out vec4 FragColor;

const vec3 keyDir = normalize(vec3(0.5, 0.8, 0.6));
const vec3 rimDir = normalize(vec3(-0.6, -0.2, 0.4));

void main() {
    vec3 n = normalize(vNormal);
    float key = max(dot(n, keyDir), 0.0);
    float rim = max(dot(n, rimDir), 0.0) * 0.35;
    float hemi = 0.25 + 0.2 * (n.y * 0.5 + 0.5);
    vec3 lit = uColor * (key + rim + hemi);
    vec3 col = lit + uEmissive * uEmissiveStrength;
    FragColor = vec4(col * uFade, 1.0);
}
` + "\x00"

// Star vertex shader: point sprites on a slowly rotating shell.
const starVertSrc = `#version 410 core

layout(location = 0) in vec3 aPos;
layout(location = 1) in float aSize;

uniform mat4 uProj;
uniform mat4 uView;
uniform float uRot;
uniform float uPointScale;

void main() {
    float c = cos(uRot);
    float s = sin(uRot);
    vec3 pos = vec3(c * aPos.x - s * aPos.z, aPos.y, s * aPos.x + c * aPos.z);
    gl_Position = uProj * uView * vec4(pos, 1.0);
    gl_PointSize = max(1.0, aSize * uPointScale / max(gl_Position.w, 0.1));
}
` + "\x00"

// Star fragment shader: soft radial glow.
const starFragSrc = `#version 410 core

uniform vec3 uColor;
uniform float uFade;

out vec4 FragColor;

void main() {
    vec2 uv = gl_PointCoord - vec2(0.5);
    float d = length(uv) * 2.0;
    float glow = exp(-d * d * 4.0);
    if (glow < 0.01) discard;
    FragColor = vec4(uColor * glow * uFade, 1.0);
}
` + "\x00"

// Fullscreen quad vertex shader shared by the post passes.
const quadVertSrc = `#version 410 core

layout(location = 0) in vec2 aPos;

out vec2 vUV;

void main() {
    vUV = aPos * 0.5 + 0.5;
    gl_Position = vec4(aPos, 0.0, 1.0);
}
` + "\x00"

// Bright pass: keep only the luminance above the bloom threshold.
const brightFragSrc = `#version 410 core

uniform sampler2D uScene;
uniform float uThreshold;

in vec2 vUV;
out vec4 FragColor;

void main() {
    vec3 c = texture(uScene, vUV).rgb;
    float lum = dot(c, vec3(0.2126, 0.7152, 0.0722));
    float keep = smoothstep(uThreshold, uThreshold + 0.25, lum);
    FragColor = vec4(c * keep, 1.0);
}
` + "\x00"

// Separable gaussian blur, 5 taps, direction switched per pass.
const blurFragSrc = `#version 410 core

uniform sampler2D uTex;
uniform vec2 uTexel;
uniform bool uHorizontal;

in vec2 vUV;
out vec4 FragColor;

const float w[5] = float[](0.227027, 0.1945946, 0.1216216, 0.054054, 0.016216);

void main() {
    vec2 dir = uHorizontal ? vec2(uTexel.x, 0.0) : vec2(0.0, uTexel.y);
    vec3 sum = texture(uTex, vUV).rgb * w[0];
    for (int i = 1; i < 5; i++) {
        sum += texture(uTex, vUV + dir * float(i)).rgb * w[i];
        sum += texture(uTex, vUV - dir * float(i)).rgb * w[i];
    }
    FragColor = vec4(sum, 1.0);
}
` + "\x00"

// Composite: scene plus the blurred highlights scaled by bloom strength.
const compositeFragSrc = `#version 410 core

uniform sampler2D uScene;
uniform sampler2D uBloom;
uniform float uStrength;

in vec2 vUV;
out vec4 FragColor;

void main() {
    vec3 scene = texture(uScene, vUV).rgb;
    vec3 bloom = texture(uBloom, vUV).rgb;
    vec3 col = scene + bloom * uStrength;
    // Filmic-ish rolloff keeps bright cores from clipping hard.
    col = col / (col + vec3(0.35));
    FragColor = vec4(col * 1.35, 1.0);
}
` + "\x00"

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		buf := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(buf))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compile shader: %s", strings.TrimRight(buf, "\x00"))
	}
	return shader, nil
}

func linkProgram(vertSrc, fragSrc string) (uint32, error) {
	vs, err := compileShader(vertSrc, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	fs, err := compileShader(fragSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vs)
		return 0, err
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, vs)
	gl.AttachShader(program, fs)
	gl.LinkProgram(program)

	gl.DetachShader(program, vs)
	gl.DetachShader(program, fs)
	gl.DeleteShader(vs)
	gl.DeleteShader(fs)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLen)
		buf := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(program, logLen, nil, gl.Str(buf))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link program: %s", strings.TrimRight(buf, "\x00"))
	}
	return program, nil
}
