package lifecycle

import (
	"gorm.io/datatypes"

	"github.com/kbukum/vidpipe/pipeline"
)

// Projector maps a raw compute result onto a node's output document.
type Projector func(result map[string]any) datatypes.JSONMap

var projectors = map[string]Projector{
	"merge-videos":          projectVideo,
	"generate-talking-head": projectVideo,
	"compose-video":         projectComposition,
	"generate-voiceover":    projectAudio,
	"mix-audio":             projectAudio,
	"asset":                 projectAsset,
}

// Project builds the output document for executorType. Unknown types keep
// the raw result as is.
func Project(executorType string, result map[string]any) datatypes.JSONMap {
	if p, ok := projectors[executorType]; ok {
		return p(result)
	}
	return pipeline.CloneDoc(result)
}

func projectVideo(r map[string]any) datatypes.JSONMap {
	return datatypes.JSONMap{
		"type":     "video",
		"s3Key":    pipeline.StorageKey(r),
		"duration": number(r["duration"]),
		"size":     integer(r["size"]),
	}
}

func projectComposition(r map[string]any) datatypes.JSONMap {
	out := projectVideo(r)
	out["width"] = integer(r["width"])
	out["height"] = integer(r["height"])
	return out
}

func projectAudio(r map[string]any) datatypes.JSONMap {
	return datatypes.JSONMap{
		"type":     "audio",
		"s3Key":    pipeline.StorageKey(r),
		"duration": number(r["duration"]),
	}
}

func projectAsset(r map[string]any) datatypes.JSONMap {
	typ, _ := pipeline.AsString(r["type"])
	src, _ := pipeline.AsString(r["source"])
	return datatypes.JSONMap{"type": typ, "s3Key": src}
}

func number(v any) float64 {
	f, _ := pipeline.AsFloat(v)
	return f
}

func integer(v any) int64 {
	f, _ := pipeline.AsFloat(v)
	return int64(f)
}
