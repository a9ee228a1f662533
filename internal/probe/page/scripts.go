package page

// Collection scripts. Each one only reads the DOM and returns plain JSON;
// all heuristics run in Go.

const documentScript = `(() => ({
  url: window.location.href,
  html: document.documentElement.outerHTML,
  inlineScripts: document.querySelectorAll('script:not([src])').length,
  eventHandlers: document.querySelectorAll('[onclick],[onload],[onerror]').length
}))()`

const storageScript = `(() => {
  const out = {};
  try {
    for (const store of [localStorage, sessionStorage]) {
      for (let i = 0; i < store.length; i++) {
        const key = store.key(i);
        out[key] = String(store.getItem(key));
      }
    }
  } catch (e) {}
  return out;
})()`

const formsScript = `(() => Array.from(document.querySelectorAll('form')).map((form) => ({
  action: form.getAttribute('action') ? form.action : '',
  method: (form.getAttribute('method') || 'get').toLowerCase(),
  namedInputs: form.querySelectorAll('input[name], textarea[name]').length,
  hasPassword: !!form.querySelector('input[type="password"]'),
  hasEmail: !!form.querySelector('input[type="email"]'),
  hasHiddenToken: !!form.querySelector('input[type="hidden"][name*="token"]'),
  hasCSRFToken: !!form.querySelector('input[name*="csrf"], input[name*="token"], input[name="_token"]')
})))()`

const cookieScript = `(() => ({
  protocol: window.location.protocol,
  cookies: document.cookie ? document.cookie.split(';').length : 0
}))()`

const resourcesScript = `(() => {
  const out = [];
  for (const tag of ['img', 'script', 'link', 'iframe', 'video', 'audio']) {
    document.querySelectorAll(tag).forEach((el) => {
      const src = el.src || el.href || '';
      if (!src) return;
      out.push({
        tag: tag,
        src: src,
        rel: (el.getAttribute('rel') || '').toLowerCase(),
        integrity: !!el.integrity
      });
    });
  }
  return { origin: window.location.origin, resources: out };
})()`

const deprecatedScript = `(() => {
  const out = {};
  for (const tag of ['font', 'center', 'marquee', 'blink', 'big', 'strike', 'tt']) {
    out[tag] = document.querySelectorAll(tag).length;
  }
  return out;
})()`

type document struct {
	URL           string `json:"url"`
	HTML          string `json:"html"`
	InlineScripts int    `json:"inlineScripts"`
	EventHandlers int    `json:"eventHandlers"`
}

type form struct {
	Action         string `json:"action"`
	Method         string `json:"method"`
	NamedInputs    int    `json:"namedInputs"`
	HasPassword    bool   `json:"hasPassword"`
	HasEmail       bool   `json:"hasEmail"`
	HasHiddenToken bool   `json:"hasHiddenToken"`
	HasCSRFToken   bool   `json:"hasCSRFToken"`
}

type cookies struct {
	Protocol string `json:"protocol"`
	Cookies  int    `json:"cookies"`
}

type resource struct {
	Tag       string `json:"tag"`
	Src       string `json:"src"`
	Rel       string `json:"rel"`
	Integrity bool   `json:"integrity"`
}

type resources struct {
	Origin    string     `json:"origin"`
	Resources []resource `json:"resources"`
}

var deprecatedTags = []string{"font", "center", "marquee", "blink", "big", "strike", "tt"}

const locationScript = `window.location.href`
