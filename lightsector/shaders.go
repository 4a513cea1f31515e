package lightsector

// The compute kernels for GL devices. Buffer bindings follow the order of
// Kernel.Buffers, image units the order of Kernel.Images. The host bodies in
// relight.go implement the same math.

const glslCommon = `
#define PI 3.14159265358979

struct Probe {
	int id;
	vec3 pos;
	vec4 irradiance[6];
	float sky_vis[9];
	int brick_factor_start;
	int brick_factor_count;
};

struct Surfel {
	int nearest_probe;
	vec3 pos;
	vec3 normal;
	vec3 albedo;
	vec3 radiance;
};

struct SurfelBrick {
	int surfel_start;
	int surfel_count;
	vec3 radiance;
};

struct SurfelBrickFactor {
	int brick_id;
	float weights[6];
};

uniform int invocations;
uniform float sky_r[9];
uniform float sky_g[9];
uniform float sky_b[9];

void sh_basis(vec3 d, out float b[9]) {
	b[0] = 0.282095;
	b[1] = 0.488603 * d.y;
	b[2] = 0.488603 * d.z;
	b[3] = 0.488603 * d.x;
	b[4] = 1.092548 * d.x * d.y;
	b[5] = 1.092548 * d.y * d.z;
	b[6] = 0.315392 * (3.0 * d.z * d.z - 1.0);
	b[7] = 1.092548 * d.x * d.z;
	b[8] = 0.546274 * (d.x * d.x - d.y * d.y);
}

vec3 sky_eval(float b[9]) {
	vec3 r = vec3(0.0);
	for (int i = 0; i < 9; i++) {
		r += vec3(sky_r[i], sky_g[i], sky_b[i]) * b[i];
	}
	return r;
}
`

const brickRelightSource = `#version 430 core
layout(local_size_x = 64) in;
` + glslCommon + `
layout(std430, binding = 0) buffer Surfels { Surfel surfels[]; };
layout(std430, binding = 1) buffer Bricks { SurfelBrick bricks[]; };
layout(std430, binding = 2) readonly buffer ProbesIn { Probe probes_in[]; };
layout(binding = 0, r32f) readonly uniform image2D shadow_map;

uniform int sun_enabled;
uniform vec3 sun_direction;
uniform vec3 sun_radiance;
uniform int point_light_count;
uniform float point_lights[64];
uniform float gi_boost;
uniform int use_probes;
uniform int shadow_enabled;
uniform mat4 light_vp;
uniform float shadow_bias;
uniform int shadow_size;

float shadow_visibility(vec3 p) {
	if (shadow_enabled == 0) {
		return 1.0;
	}
	vec4 c = light_vp * vec4(p, 1.0);
	vec3 w = c.xyz * 0.5 + 0.5;
	if (w.x < 0.0 || w.x >= 1.0 || w.y < 0.0 || w.y >= 1.0 || w.z > 1.0) {
		return 1.0;
	}
	ivec2 t = min(ivec2(w.xy * float(shadow_size)), ivec2(shadow_size - 1));
	return (w.z - shadow_bias <= imageLoad(shadow_map, t).r) ? 1.0 : 0.0;
}

vec3 point_light(int i, vec3 p, vec3 n) {
	int o = i * 8;
	vec3 lp = vec3(point_lights[o], point_lights[o + 1], point_lights[o + 2]);
	float range = point_lights[o + 3];
	vec3 radiance = vec3(point_lights[o + 4], point_lights[o + 5], point_lights[o + 6]);
	vec3 d = lp - p;
	float dist2 = dot(d, d);
	if (range > 0.0 && dist2 > range * range) {
		return vec3(0.0);
	}
	float ndl = max(dot(n, normalize(d)), 0.0);
	float falloff = 1.0 / max(dist2, 1e-4);
	if (range > 0.0) {
		float w = clamp(1.0 - dist2 / (range * range), 0.0, 1.0);
		falloff *= w * w;
	}
	return radiance * ndl * falloff;
}

vec3 sky_irradiance(vec3 n) {
	float b[9];
	sh_basis(n, b);
	const float a[9] = float[9](PI, 2.0 * PI / 3.0, 2.0 * PI / 3.0, 2.0 * PI / 3.0,
		PI / 4.0, PI / 4.0, PI / 4.0, PI / 4.0, PI / 4.0);
	for (int i = 0; i < 9; i++) {
		b[i] *= a[i];
	}
	return max(sky_eval(b), vec3(0.0));
}

vec3 ambient_cube(int probe, vec3 n) {
	vec3 n2 = n * n;
	int ix = n.x < 0.0 ? 1 : 0;
	int iy = n.y < 0.0 ? 3 : 2;
	int iz = n.z < 0.0 ? 5 : 4;
	return n2.x * probes_in[probe].irradiance[ix].xyz +
		n2.y * probes_in[probe].irradiance[iy].xyz +
		n2.z * probes_in[probe].irradiance[iz].xyz;
}

void main() {
	int i = int(gl_GlobalInvocationID.x);
	if (i >= invocations) {
		return;
	}
	int start = bricks[i].surfel_start;
	int count = bricks[i].surfel_count;
	vec3 sum = vec3(0.0);
	for (int s = start; s < start + count; s++) {
		vec3 p = surfels[s].pos;
		vec3 n = surfels[s].normal;
		vec3 e = vec3(0.0);
		if (sun_enabled != 0) {
			e += sun_radiance * max(dot(n, -sun_direction), 0.0) * shadow_visibility(p);
		}
		for (int l = 0; l < point_light_count; l++) {
			e += point_light(l, p, n);
		}
		int np = surfels[s].nearest_probe;
		if (use_probes != 0 && np >= 0) {
			e += ambient_cube(np, n);
		} else {
			e += sky_irradiance(n);
		}
		vec3 r = surfels[s].albedo * e * (gi_boost / PI);
		surfels[s].radiance = r;
		sum += r;
	}
	bricks[i].radiance = count > 0 ? sum / float(count) : vec3(0.0);
}
`

const probeRelightSource = `#version 430 core
layout(local_size_x = 64) in;
` + glslCommon + `
layout(std430, binding = 0) buffer ProbesOut { Probe probes[]; };
layout(std430, binding = 1) readonly buffer Bricks { SurfelBrick bricks[]; };
layout(std430, binding = 2) readonly buffer BrickFactors { SurfelBrickFactor factors[]; };

uniform int quadrature_size;
uniform float quadrature_norm;

const vec3 face_forward[6] = vec3[6](vec3(1, 0, 0), vec3(-1, 0, 0), vec3(0, 1, 0),
	vec3(0, -1, 0), vec3(0, 0, 1), vec3(0, 0, -1));
const vec3 face_right[6] = vec3[6](vec3(0, 0, 1), vec3(0, 0, -1), vec3(1, 0, 0),
	vec3(1, 0, 0), vec3(-1, 0, 0), vec3(1, 0, 0));
const vec3 face_up[6] = vec3[6](vec3(0, 1, 0), vec3(0, 1, 0), vec3(0, 0, 1),
	vec3(0, 0, -1), vec3(0, 1, 0), vec3(0, 1, 0));

void main() {
	int i = int(gl_GlobalInvocationID.x);
	if (i >= invocations) {
		return;
	}
	vec3 bounce[6];
	vec3 sky[6];
	float occluded[6];
	for (int a = 0; a < 6; a++) {
		bounce[a] = vec3(0.0);
		sky[a] = vec3(0.0);
		occluded[a] = 0.0;
	}
	int start = probes[i].brick_factor_start;
	int count = probes[i].brick_factor_count;
	for (int f = start; f < start + count; f++) {
		vec3 l = bricks[factors[f].brick_id].radiance;
		for (int a = 0; a < 6; a++) {
			bounce[a] += l * factors[f].weights[a];
		}
	}

	float vis[9];
	for (int k = 0; k < 9; k++) {
		vis[k] = probes[i].sky_vis[k];
	}
	float size = float(quadrature_size);
	for (int face = 0; face < 6; face++) {
		for (int y = 0; y < quadrature_size; y++) {
			for (int x = 0; x < quadrature_size; x++) {
				float u = (float(x) + 0.5) / size * 2.0 - 1.0;
				float v = (float(y) + 0.5) / size * 2.0 - 1.0;
				vec3 d = normalize(face_forward[face] + face_right[face] * u + face_up[face] * v);
				float t = u * u + v * v + 1.0;
				float w = 24.0 / (sqrt(t) * t) * quadrature_norm;
				float b[9];
				sh_basis(d, b);
				float vv = 0.0;
				for (int k = 0; k < 9; k++) {
					vv += vis[k] * b[k];
				}
				vv = clamp(vv, 0.0, 1.0);
				vec3 l = max(sky_eval(b), vec3(0.0));
				for (int a = 0; a < 6; a++) {
					float c = max(dot(d, face_forward[a]), 0.0) * w;
					sky[a] += l * vv * c;
					occluded[a] += (1.0 - vv) * c;
				}
			}
		}
	}
	for (int a = 0; a < 6; a++) {
		probes[i].irradiance[a] = vec4(sky[a] + bounce[a] * occluded[a], 0.0);
	}
}
`
