package render

import (
	"fmt"
	"html/template"
	"io"
	"math"

	"github.com/xiaonanln/streamgraph/explorer"
)

const pageSource = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>streamgraph</title>
<style>
body { font-family: sans-serif; margin: 1rem; color: #333; }
.code { font-family: monospace; }
.controls { display: flex; gap: 0.5rem; align-items: center; margin-top: 0.5rem; }
.range-input { flex: 1; }
</style>
</head>
<body>
<div id="graph">{{.SVG}}</div>
<div class="controls">
<button class="connect-btn" type="button">Connect</button>
<button class="disconnect-btn" type="button"{{if .DisconnectDisabled}} disabled{{end}}>Disconnect</button>
<input class="range-input" type="range" min="0" max="100" step="1" value="{{.Percent}}">
<span class="version code">v{{.Version}}</span>
</div>
<script>
(function () {
  var graph = document.getElementById("graph");
  var disconnectBtn = document.querySelector(".disconnect-btn");
  var rangeInput = document.querySelector(".range-input");
  var version = document.querySelector(".version");
  var latest = 0;

  function post(path) {
    return fetch(path, { method: "POST" });
  }

  document.querySelector(".connect-btn").addEventListener("click", function () { post("/connect"); });
  disconnectBtn.addEventListener("click", function () { post("/disconnect"); });
  rangeInput.addEventListener("input", function () {
    post("/range?value=" + encodeURIComponent(rangeInput.value));
  });

  function apply(state) {
    if (state.version <= latest) {
      return;
    }
    latest = state.version;
    disconnectBtn.disabled = state.disconnectDisabled;
    version.textContent = "v" + state.version;
    if (document.activeElement !== rangeInput) {
      rangeInput.value = Math.round(state.current.currentPercent * 100);
    }
    fetch("/svg?version=" + state.version)
      .then(function (resp) { return resp.text(); })
      .then(function (svg) {
        if (state.version === latest) {
          graph.innerHTML = svg;
        }
      });
  }

  var source = new EventSource("/events/stream");
  source.addEventListener("initial", function (ev) { apply(JSON.parse(ev.data)); });
  source.addEventListener("state", function (ev) { apply(JSON.parse(ev.data)); });
})();
</script>
</body>
</html>
`

type pageData struct {
	SVG                template.HTML
	DisconnectDisabled bool
	Percent            int
	Version            uint64
}

// Page writes the interactive HTML page for st: the diagram, the Connect
// and Disconnect buttons and the range slider.
func (r *Renderer) Page(w io.Writer, st *explorer.RenderState) error {
	svg, err := r.SVGString(st)
	if err != nil {
		return err
	}
	data := pageData{
		// Produced by the svg template, which escapes every value.
		SVG:                template.HTML(svg),
		DisconnectDisabled: st.DisconnectDisabled,
		Percent:            int(math.Round(st.Current.CurrentPercent * 100)),
		Version:            st.Version,
	}
	if err := r.page.Execute(w, data); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}
