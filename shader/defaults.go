package shader

// Built-in HLSL fallback shaders. They keep the renderer drawing when
// no shader directory is configured or a load fails at startup.

const defaultVertexSource = `struct VSInput {
    float3 position : POSITION;
    float3 normal : NORMAL;
    float2 uv : TEXCOORD0;
};

struct VSOutput {
    float4 position : SV_POSITION;
    float3 worldPos : TEXCOORD0;
    float3 normal : TEXCOORD1;
    float2 uv : TEXCOORD2;
};

cbuffer PerObject : register(b0) {
    float4x4 worldMatrix;
    float4x4 viewMatrix;
    float4x4 projectionMatrix;
};

VSOutput main(VSInput input) {
    VSOutput output;

    float4 worldPos = mul(float4(input.position, 1.0), worldMatrix);
    output.worldPos = worldPos.xyz;

    output.position = mul(worldPos, viewMatrix);
    output.position = mul(output.position, projectionMatrix);

    output.normal = mul(input.normal, (float3x3)worldMatrix);
    output.uv = input.uv;

    return output;
}
`

const defaultPixelSource = `struct PSInput {
    float4 position : SV_POSITION;
    float3 worldPos : TEXCOORD0;
    float3 normal : TEXCOORD1;
    float2 uv : TEXCOORD2;
};

cbuffer PerFrame : register(b0) {
    float3 lightDirection;
    float3 lightColor;
    float3 ambientColor;
};

Texture2D diffuseTexture : register(t0);
SamplerState textureSampler : register(s0);

float4 main(PSInput input) : SV_TARGET {
    float3 normal = normalize(input.normal);
    float3 lightDir = normalize(-lightDirection);

    float4 diffuse = diffuseTexture.Sample(textureSampler, input.uv);

    float NdotL = max(0.0, dot(normal, lightDir));
    float3 lighting = ambientColor + lightColor * NdotL;

    return float4(diffuse.rgb * lighting, diffuse.a);
}
`
