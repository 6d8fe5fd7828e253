package gdocai

import (
	"math"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/gardar/tallyocr/pkg/hocr"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// ToJSON renders a protocol buffer message as indented JSON
func ToJSON(msg proto.Message) ([]byte, error) {
	return protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(msg)
}

// boundingBox converts a layout's polygon to a pixel bounding box. Normalized
// vertices (0-1) are scaled by the page dimension; pixel vertices are used as
// reported.
func boundingBox(layout *documentaipb.Document_Page_Layout, dim *documentaipb.Document_Page_Dimension) hocr.BoundingBox {
	poly := layout.GetBoundingPoly()
	if poly == nil {
		return hocr.BoundingBox{}
	}

	var xs, ys []float64
	if nv := poly.GetNormalizedVertices(); len(nv) > 0 && dim != nil {
		for _, v := range nv {
			xs = append(xs, float64(v.GetX())*float64(dim.GetWidth()))
			ys = append(ys, float64(v.GetY())*float64(dim.GetHeight()))
		}
	} else {
		for _, v := range poly.GetVertices() {
			xs = append(xs, float64(v.GetX()))
			ys = append(ys, float64(v.GetY()))
		}
	}
	if len(xs) == 0 {
		return hocr.BoundingBox{}
	}

	box := hocr.NewBoundingBox(math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1))
	for i := range xs {
		box.X1 = math.Min(box.X1, xs[i])
		box.Y1 = math.Min(box.Y1, ys[i])
		box.X2 = math.Max(box.X2, xs[i])
		box.Y2 = math.Max(box.Y2, ys[i])
	}
	return box
}

func confidence(layout *documentaipb.Document_Page_Layout) float64 {
	return math.Round(float64(layout.GetConfidence())*10000) / 100
}

func language(langs []*documentaipb.Document_Page_DetectedLanguage) string {
	if len(langs) == 0 {
		return ""
	}
	return langs[0].GetLanguageCode()
}
