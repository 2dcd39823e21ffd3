package chrome

import (
	"encoding/json"
	"fmt"

	"github.com/ternarybob/gridcheck/internal/interfaces"
)

// Elements are addressed through a registry kept on window. A handle whose
// node left the document resolves to nothing, which surfaces as a stale
// element. A navigation drops the registry and with it every handle.
const prelude = `
const reg = window.__gridcheck || (window.__gridcheck = {seq: 0, nodes: new Map()});
const lookup = (id) => {
	const el = reg.nodes.get(id);
	if (!el || !el.isConnected) { reg.nodes.delete(id); return null; }
	return el;
};
const remember = (el) => { const id = "gc" + (++reg.seq); reg.nodes.set(id, el); return id; };
const textOf = (el) => ((el.innerText !== undefined ? el.innerText : el.textContent) || "").trim();
const visible = (el) => {
	if (!(el.offsetWidth || el.offsetHeight || el.getClientRects().length)) return false;
	const style = window.getComputedStyle(el);
	return style.visibility !== "hidden" && style.display !== "none";
};
const describe = (el) => {
	let label = el.tagName.toLowerCase();
	if (el.id) label += "#" + el.id;
	if (typeof el.className === "string" && el.className.trim()) label += "." + el.className.trim().split(/\s+/).join(".");
	return label;
};
const fire = (el, type) => el.dispatchEvent(new Event(type, {bubbles: true}));
`

const queryScript = `(a) => {
	let scope = document;
	if (a.root) {
		scope = lookup(a.root);
		if (!scope) return {status: "stale"};
	}
	let found = [];
	if (a.by === "xpath") {
		const snap = document.evaluate(a.value, scope, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
		for (let i = 0; i < snap.snapshotLength; i++) found.push(snap.snapshotItem(i));
	} else {
		found = Array.from(scope.querySelectorAll(a.value));
	}
	if (a.text) found = found.filter((el) => textOf(el) === a.text);
	return {status: "ok", ids: found.map(remember), items: found.map(describe)};
}`

// Clicks are scheduled with setTimeout so a handler that opens a native
// dialog cannot block the evaluation that triggered it.
const elementScript = `(a) => {
	const el = lookup(a.id);
	if (!el) return {status: "stale"};
	switch (a.op) {
	case "text":
		return {status: "ok", text: textOf(el)};
	case "visible":
		return {status: "ok", flag: visible(el)};
	case "enabled":
		return {status: "ok", flag: !el.disabled};
	case "clear":
		el.value = "";
		fire(el, "input");
		fire(el, "change");
		return {status: "ok"};
	case "send":
		el.value = (el.value || "") + a.text;
		fire(el, "input");
		fire(el, "change");
		return {status: "ok"};
	case "select": {
		const opt = Array.from(el.options || []).find((o) => o.text.trim() === a.text);
		if (!opt) return {status: "no_option"};
		el.value = opt.value;
		opt.selected = true;
		fire(el, "change");
		return {status: "ok"};
	}
	case "options":
		return {status: "ok", items: Array.from(el.options || []).map((o) => o.text.trim())};
	case "click":
	case "dblclick": {
		if (!visible(el)) return {status: "intercepted", blocker: "not visible"};
		el.scrollIntoView({block: "center", inline: "center"});
		const r = el.getBoundingClientRect();
		const top = document.elementFromPoint(r.left + r.width / 2, r.top + r.height / 2);
		if (top && top !== el && !el.contains(top)) return {status: "intercepted", blocker: describe(top)};
		setTimeout(() => {
			el.click();
			if (a.op === "dblclick") {
				el.click();
				el.dispatchEvent(new MouseEvent("dblclick", {bubbles: true, cancelable: true, view: window}));
			}
		}, 0);
		return {status: "ok"};
	}
	}
	return {status: "error", text: "unknown operation " + a.op};
}`

// result is the value every script returns
type result struct {
	Status  string   `json:"status"`
	IDs     []string `json:"ids,omitempty"`
	Items   []string `json:"items,omitempty"`
	Text    string   `json:"text,omitempty"`
	Flag    bool     `json:"flag,omitempty"`
	Blocker string   `json:"blocker,omitempty"`
}

// err maps a script status to the browser error kinds
func (r result) err() error {
	switch r.Status {
	case "ok":
		return nil
	case "stale":
		return interfaces.ErrStaleElement
	case "intercepted":
		return fmt.Errorf("%w: %s", interfaces.ErrClickIntercepted, r.Blocker)
	case "no_option":
		return interfaces.ErrOptionNotFound
	case "error":
		return fmt.Errorf("script error: %s", r.Text)
	}
	return fmt.Errorf("unexpected script status %q", r.Status)
}

// expression wraps a script function and its argument into a self-invoking
// expression for Runtime.evaluate
func expression(script string, arg interface{}) (string, error) {
	encoded, err := json.Marshal(arg)
	if err != nil {
		return "", fmt.Errorf("failed to encode script argument: %w", err)
	}
	return fmt.Sprintf("(() => {%s\nreturn (%s)(%s);\n})()", prelude, script, encoded), nil
}

type queryArg struct {
	Root  string `json:"root,omitempty"`
	By    string `json:"by"`
	Value string `json:"value"`
	Text  string `json:"text,omitempty"`
}

type elementArg struct {
	ID   string `json:"id"`
	Op   string `json:"op"`
	Text string `json:"text,omitempty"`
}
