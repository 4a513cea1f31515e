package irradiance

const volumeSource = `#version 430 core
layout(local_size_x = 64) in;

struct Probe {
	int id;
	vec3 pos;
	vec4 irradiance[6];
	float sky_vis[9];
	int brick_factor_start;
	int brick_factor_count;
};

struct ProbeSearchCell {
	ivec4 vertices;
	ivec4 neighbours;
	mat3 converter;
};

layout(std430, binding = 0) readonly buffer Probes { Probe probes[]; };
layout(std430, binding = 1) readonly buffer Network { ProbeSearchCell cells[]; };
layout(std430, binding = 2) buffer Hints { int hints[]; };

layout(binding = 0, rgba32f) writeonly uniform image3D irradiance_px;
layout(binding = 1, rgba32f) writeonly uniform image3D irradiance_nx;
layout(binding = 2, rgba32f) writeonly uniform image3D irradiance_py;
layout(binding = 3, rgba32f) writeonly uniform image3D irradiance_ny;
layout(binding = 4, rgba32f) writeonly uniform image3D irradiance_pz;
layout(binding = 5, rgba32f) writeonly uniform image3D irradiance_nz;

uniform int invocations;
uniform vec3 volume_min;
uniform vec3 volume_max;
uniform int res_x;
uniform int res_y;
uniform int res_z;

vec4 barycentric(int c, vec3 p) {
	vec3 b = cells[c].converter * (p - probes[cells[c].vertices.x].pos);
	return vec4(1.0 - b.x - b.y - b.z, b);
}

int min_index(vec4 b) {
	int m = 0;
	for (int i = 1; i < 4; i++) {
		if (b[i] < b[m]) {
			m = i;
		}
	}
	return m;
}

vec4 clamp_weights(vec4 b) {
	vec4 c = max(b, vec4(0.0));
	float sum = c.x + c.y + c.z + c.w;
	if (sum < 1e-6) {
		int m = 0;
		for (int i = 1; i < 4; i++) {
			if (b[i] > b[m]) {
				m = i;
			}
		}
		c = vec4(0.0);
		c[m] = 1.0;
		return c;
	}
	return c / sum;
}

void main() {
	int i = int(gl_GlobalInvocationID.x);
	if (i >= invocations) {
		return;
	}
	ivec3 v = ivec3(i % res_x, (i / res_x) % res_y, i / (res_x * res_y));
	vec3 f = (vec3(v) + 0.5) / vec3(res_x, res_y, res_z);
	vec3 p = mix(volume_min, volume_max, f);

	int cur = hints[i];
	if (cur < 0 || cur >= cells.length()) {
		cur = 0;
	}
	vec4 b = barycentric(cur, p);
	bool found = false;
	for (int step = 0; step < 256; step++) {
		b = barycentric(cur, p);
		int m = min_index(b);
		if (b[m] >= -1e-5 || cells[cur].neighbours[m] < 0) {
			found = true;
			break;
		}
		cur = cells[cur].neighbours[m];
	}
	if (!found) {
		float best = -3.4e38;
		for (int c = 0; c < cells.length(); c++) {
			vec4 bc = barycentric(c, p);
			float m = bc[min_index(bc)];
			if (m > best) {
				best = m;
				cur = c;
				b = bc;
			}
		}
	}
	hints[i] = cur;
	b = clamp_weights(b);

	vec4 e[6];
	for (int a = 0; a < 6; a++) {
		e[a] = vec4(0.0);
		for (int k = 0; k < 4; k++) {
			e[a] += probes[cells[cur].vertices[k]].irradiance[a] * b[k];
		}
		e[a].w = 1.0;
	}
	imageStore(irradiance_px, v, e[0]);
	imageStore(irradiance_nx, v, e[1]);
	imageStore(irradiance_py, v, e[2]);
	imageStore(irradiance_ny, v, e[3]);
	imageStore(irradiance_pz, v, e[4]);
	imageStore(irradiance_nz, v, e[5]);
}
`
