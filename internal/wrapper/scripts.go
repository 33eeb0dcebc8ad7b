package wrapper

// Injected scripts. Page scripts run with `this` bound to window, element
// scripts with `this` bound to the element.
const (
	jsViewport = `() => ({ width: window.innerWidth, height: window.innerHeight })`

	jsDomain = `() => document.domain`

	jsScrollExtent = `() => ({
		width: document.body.parentNode.scrollWidth,
		height: document.body.parentNode.scrollHeight
	})`

	jsContains = `(ancestor, child) => ancestor.contains(child)`

	// document coordinates, like the WebDriver element rect
	jsRect = `() => {
		const r = this.getBoundingClientRect();
		return { x: r.left + window.scrollX, y: r.top + window.scrollY, width: r.width, height: r.height };
	}`

	jsTagName = `() => this.tagName.toLowerCase()`

	jsInnerText = `() => this.innerText || ''`

	jsComputedStyle = `(name) => window.getComputedStyle(this).getPropertyValue(name)`

	jsSetBorder = `(color, width, style) => {
		this.style.borderColor = color;
		this.style.borderWidth = width;
		this.style.borderStyle = style;
	}`

	jsSetText = `(text) => { this.textContent = text; }`

	// runs on the container; first is the first enclosed element
	jsInsertMarker = `(first, tag, top, left, width, height, border) => {
		const z = parseInt(document.defaultView.getComputedStyle(first).getPropertyValue('z-index'), 10);
		const marker = document.createElement(tag);
		marker.style.cssText = 'position:absolute;' +
			'top:' + top + 'px;' +
			'left:' + left + 'px;' +
			'width:' + width + 'px;' +
			'height:' + height + 'px;' +
			'border:' + border + ';' +
			'z-index:' + ((isNaN(z) ? 0 : z) + 1) + ';';
		this.insertBefore(marker, this.firstChild);
	}`
)

// markerTag is the custom element inserted by DrawRectangleAround
const markerTag = "domlens-marker"
