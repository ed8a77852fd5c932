// Package templates renders the editor's HTML with templ components.
package templates

//go:generate templ generate

// FormatOption is one export button.
type FormatOption struct {
	Name  string
	Label string
}

// EditorData is everything the editor page shows.
type EditorData struct {
	BaseName          string
	Headers           []string
	Rows              [][]string
	FieldView         bool
	Fields            []FieldData
	Formats           []FormatOption
	GenerationEnabled bool
	Generating        bool
}

// FieldData is one column in the transposed view.
type FieldData struct {
	Name   string
	Values []string
}

// styleTag and scriptTag inline the page assets.
const (
	styleTag  = "<style>" + pageStyle + "</style>"
	scriptTag = "<script>" + pageScript + "</script>"
)

const pageStyle = `
body{font-family:system-ui,sans-serif;margin:0 auto;max-width:1200px;padding:1rem;color:#222}
header h1{margin:0 0 .25rem}
.controls,.export,.generate{display:flex;flex-wrap:wrap;gap:.5rem;align-items:center;margin:.75rem 0}
.btn{border:1px solid #999;background:#f4f4f4;padding:.4rem .8rem;border-radius:4px;cursor:pointer;text-decoration:none;color:inherit}
.btn-primary{background:#2b6cb0;border-color:#2b6cb0;color:#fff}
.btn-danger{background:#c53030;border-color:#c53030;color:#fff}
.resize input{width:6rem}
.generate textarea{flex:1;min-width:20rem}
.grid{border-collapse:collapse;width:100%}
.grid th,.grid td{border:1px solid #ddd;padding:0}
.grid input{border:0;padding:.3rem;width:100%;box-sizing:border-box}
.grid .header{font-weight:bold;background:#fafafa}
.rownum{white-space:nowrap;padding:0 .3rem;color:#777}
.icon{border:0;background:none;cursor:pointer;color:#c53030}
.fields{display:flex;flex-wrap:wrap;gap:1rem}
.fields fieldset{border:1px solid #ddd}
.alert{padding:.5rem;border:1px solid #c53030;background:#fff5f5;margin:.5rem 0}
.notice{background:#fffbea;border:1px solid #d69e2e;padding:.5rem 1.5rem}
.empty{color:#777}
`

const pageScript = `
(function(){
  const alerts = document.getElementById('alerts');
  function showError(msg){
    alerts.innerHTML = '';
    const div = document.createElement('div');
    div.className = 'alert alert-error';
    div.textContent = msg;
    alerts.appendChild(div);
  }
  async function call(method, url, body){
    const opts = {method: method, headers: {'Accept': 'application/json'}};
    if (body instanceof FormData) { opts.body = body; }
    else if (body !== undefined) { opts.headers['Content-Type'] = 'application/json'; opts.body = JSON.stringify(body); }
    const res = await fetch(url, opts);
    const data = await res.json().catch(function(){ return {}; });
    if (!res.ok) { showError((data.message || 'Request failed') + (data.code ? ' (' + data.code + ')' : '') + (data.action ? ' ' + data.action : '')); throw new Error(data.code || res.status); }
    return data;
  }
  function edit(op, extra, reload){
    return call('POST', '/api/edit', Object.assign({op: op}, extra)).then(function(){ if (reload) location.reload(); });
  }
  document.querySelectorAll('[data-op]').forEach(function(btn){
    btn.addEventListener('click', function(){
      if (btn.dataset.op === 'clear' && !confirm('Clear the whole table?')) return;
      edit(btn.dataset.op, {}, true);
    });
  });
  document.getElementById('resize').addEventListener('click', function(){
    edit('resize', {columns: parseInt(document.getElementById('res-cols').value || '0', 10), rows: parseInt(document.getElementById('res-rows').value || '0', 10)}, true);
  });
  document.addEventListener('change', function(e){
    const el = e.target, d = el.dataset;
    if (el.classList.contains('header')) edit('set_header', {col: +d.col, value: el.value});
    else if (el.classList.contains('cell')) edit('set_cell', {row: +d.row, col: +d.col, value: el.value});
    else if (el.classList.contains('field-name')) edit('set_field_name', {col: +d.field, value: el.value});
    else if (el.classList.contains('field-value')) edit('set_field_value', {col: +d.field, row: +d.record, value: el.value});
    else if (el.id === 'base-name') call('PUT', '/api/name', {name: el.value}).then(function(r){ el.value = r.base_name; });
  });
  document.addEventListener('click', function(e){
    const d = e.target.dataset;
    if (d.deleteRow !== undefined) edit('delete_row', {row: +d.deleteRow}, true);
    if (d.deleteCol !== undefined) edit('delete_column', {col: +d.deleteCol}, true);
  });
  document.getElementById('file').addEventListener('change', function(e){
    const f = e.target.files[0];
    if (!f) return;
    const fd = new FormData();
    fd.append('file', f);
    call('POST', '/api/import', fd).then(function(r){
      if (r.warnings && r.warnings.length) alert(r.warnings.join('\n'));
      location.reload();
    }).finally(function(){ e.target.value = ''; });
  });
  const gen = document.getElementById('generate');
  if (gen) gen.addEventListener('click', function(){
    const text = document.getElementById('instruction');
    gen.disabled = true;
    call('POST', '/api/generate', {instruction: text.value}).then(function(){ location.reload(); }).finally(function(){ gen.disabled = false; });
  });
})();
`
