package scene

import (
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/lumen3d/lumen/pipeline"
)

// Stats counts the work of one RenderScene call
type Stats struct {
	DrawCalls       uint64
	Triangles       uint64
	Vertices        uint64
	CulledObjects   int
	LightsProcessed int
}

// PassHook runs inside a pass that the scene renderer does not fill
// itself, so a host can draw its own UI or post effects
type PassHook func(info pipeline.PassInfo) error

// NewRenderer creates a scene renderer on top of p. Distance and
// material sorting are on by default, frustum culling is off.
func NewRenderer(p *pipeline.Pipeline) *Renderer {
	return &Renderer{
		pipeline:       p,
		log:            log.WithField("component", "scene"),
		sortByDistance: true,
		sortByMaterial: true,
	}
}

// Renderer extracts, culls, sorts and dispatches scene objects. It
// lives on the render thread.
type Renderer struct {
	pipeline *pipeline.Pipeline
	log      *log.Entry

	frustumCulling   bool
	occlusionCulling bool
	sortByDistance   bool
	sortByMaterial   bool

	uiHook   PassHook
	postHook PassHook

	stats Stats
}

// SetFrustumCulling toggles bounding-sphere culling against the camera
func (r *Renderer) SetFrustumCulling(enabled bool) { r.frustumCulling = enabled }

// SetSortByDistance toggles back-to-front distance sorting
func (r *Renderer) SetSortByDistance(enabled bool) { r.sortByDistance = enabled }

// SetSortByMaterial toggles material grouping for the opaque pass
func (r *Renderer) SetSortByMaterial(enabled bool) { r.sortByMaterial = enabled }

// SetOcclusionCulling records the toggle. No occlusion query path
// exists yet, the flag has no effect on output.
func (r *Renderer) SetOcclusionCulling(enabled bool) { r.occlusionCulling = enabled }

// SetUIHook installs a callback run inside the ui pass
func (r *Renderer) SetUIHook(fn PassHook) { r.uiHook = fn }

// SetPostProcessHook installs a callback run inside the post_process pass
func (r *Renderer) SetPostProcessHook(fn PassHook) { r.postHook = fn }

// Stats returns the counters of the last RenderScene
func (r *Renderer) Stats() Stats {
	return r.stats
}

// RenderScene draws one frame of src as seen by cam. The frame runs
// extract, cull, sort and then dispatches the survivors through the
// pipeline's pass order.
func (r *Renderer) RenderScene(src Source, cam Camera) (Stats, error) {
	r.stats = Stats{}
	if src == nil || cam == nil {
		return r.stats, fmt.Errorf("scene: nil source or camera")
	}

	objects := src.Objects()
	lights := src.Lights()
	r.stats.LightsProcessed = len(lights)

	if r.frustumCulling {
		objects = r.cull(objects, cam)
	}

	opaque, transparent := partition(objects)
	r.sortObjects(opaque, transparent)

	err := r.pipeline.RenderAllPasses(func(name string, info pipeline.PassInfo) error {
		switch info.Type {
		case pipeline.OpaquePass:
			return r.drawObjects(opaque, pipeline.State{
				Program:    "default",
				Blend:      pipeline.BlendOpaque,
				DepthTest:  true,
				DepthWrite: true,
				Cull:       pipeline.CullBack,
			})
		case pipeline.TransparentPass:
			return r.drawObjects(transparent, pipeline.State{
				Program:    "default",
				Blend:      pipeline.BlendAlpha,
				DepthTest:  true,
				DepthWrite: false,
				Cull:       pipeline.CullBack,
			})
		case pipeline.UIPass:
			if r.uiHook != nil {
				return r.uiHook(info)
			}
		case pipeline.PostProcessPass:
			if r.postHook != nil {
				return r.postHook(info)
			}
		}
		return nil
	})
	return r.stats, err
}

func (r *Renderer) cull(objects []Object, cam Camera) []Object {
	frustum := FrustumFromMatrix(cam.ProjectionMatrix().Mul4(cam.ViewMatrix()))

	visible := objects[:0]
	for _, obj := range objects {
		if frustum.Contains(obj.Bounds) {
			visible = append(visible, obj)
		} else {
			r.stats.CulledObjects++
		}
	}
	return visible
}

func partition(objects []Object) (opaque, transparent []Object) {
	for _, obj := range objects {
		if obj.Transparent {
			transparent = append(transparent, obj)
		} else {
			opaque = append(opaque, obj)
		}
	}
	return opaque, transparent
}

// sortObjects orders both subsets back to front when distance sorting
// is on. With material sorting the opaque subset is then regrouped by
// material, so state changes win over draw order where depth testing
// makes order irrelevant. Transparent objects always keep strict
// back-to-front order for correct blending.
func (r *Renderer) sortObjects(opaque, transparent []Object) {
	if r.sortByDistance {
		byDistanceDesc(opaque)
		byDistanceDesc(transparent)
	}
	if r.sortByMaterial {
		sort.SliceStable(opaque, func(i, j int) bool {
			return opaque[i].MaterialName < opaque[j].MaterialName
		})
	}
}

func byDistanceDesc(objects []Object) {
	sort.SliceStable(objects, func(i, j int) bool {
		return objects[i].Distance > objects[j].Distance
	})
}

func (r *Renderer) drawObjects(objects []Object, state pipeline.State) error {
	if len(objects) == 0 {
		return nil
	}
	if err := r.pipeline.SetState(state); err != nil {
		return err
	}
	for _, obj := range objects {
		if obj.Mesh == nil {
			continue
		}
		if err := r.pipeline.DrawMesh(obj.Mesh, obj.Material, obj.Transform); err != nil {
			return err
		}
	}

	passStats := r.pipeline.Stats()
	r.stats.DrawCalls += passStats.DrawCalls
	r.stats.Triangles += passStats.Triangles
	r.stats.Vertices += passStats.Vertices
	return nil
}
