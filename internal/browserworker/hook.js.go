package browserworker

// trackingHookScript is injected before navigation via
// Page.EvalOnNewDocument so it runs ahead of any page script,
// including SDKs that load asynchronously. It wraps the Mixpanel and
// GA call surfaces, recording every invocation to window.__trackingLog
// before delegating to the original implementation.
const trackingHookScript = `
(function() {
  if (window.__trackingLog) return;
  window.__trackingLog = [];

  function record(platform, type, payload) {
    window.__trackingLog.push({ platform: platform, type: type, payload: payload || {}, ts: Date.now() });
  }

  function wrapFn(obj, name, platform) {
    if (!obj || typeof obj[name] !== 'function' || obj[name].__hooked) return false;
    var original = obj[name];
    var wrapped = function() {
      var args = Array.prototype.slice.call(arguments);
      try {
        record(platform, name, { args: args });
      } catch (e) {}
      return original.apply(this, args);
    };
    wrapped.__hooked = true;
    obj[name] = wrapped;
    return true;
  }

  var mixpanelMethods = ['track', 'init', 'identify', 'alias', 'register', 'reset', 'time_event', 'track_links', 'track_forms'];
  var mixpanelPeopleMethods = ['set', 'set_once', 'increment', 'append', 'union', 'track_charge'];

  function hookMixpanel() {
    if (!window.mixpanel) return false;
    var hooked = false;
    for (var i = 0; i < mixpanelMethods.length; i++) {
      hooked = wrapFn(window.mixpanel, mixpanelMethods[i], 'mixpanel') || hooked;
    }
    if (window.mixpanel.people) {
      for (var j = 0; j < mixpanelPeopleMethods.length; j++) {
        hooked = wrapFn(window.mixpanel.people, mixpanelPeopleMethods[j], 'mixpanel') || hooked;
      }
    }
    hooked = wrapFn(window.mixpanel, '_track_dom', 'mixpanel') || hooked;
    if (window.mixpanel.push && !window.mixpanel.push.__hooked) {
      hooked = wrapFn(window.mixpanel, 'push', 'mixpanel') || hooked;
    }
    return hooked;
  }

  function hookGtag() {
    if (typeof window.gtag !== 'function' || window.gtag.__hooked) return false;
    return wrapFn(window, 'gtag', 'ga');
  }

  function hookDataLayer() {
    if (!Array.isArray(window.dataLayer) || window.dataLayer.__hooked) return false;
    var original = window.dataLayer.push.bind(window.dataLayer);
    window.dataLayer.push = function() {
      var args = Array.prototype.slice.call(arguments);
      try {
        for (var i = 0; i < args.length; i++) {
          record('ga', 'dataLayer.push', args[i]);
        }
      } catch (e) {}
      return original.apply(null, args);
    };
    window.dataLayer.push.__hooked = true;
    return true;
  }

  function attempt() {
    hookMixpanel();
    hookGtag();
    hookDataLayer();
  }

  attempt();

  try {
    var mixpanelDesc = Object.getOwnPropertyDescriptor(window, 'mixpanel');
    if (!mixpanelDesc || mixpanelDesc.configurable) {
      var _mixpanel = window.mixpanel;
      Object.defineProperty(window, 'mixpanel', {
        configurable: true,
        get: function() { return _mixpanel; },
        set: function(v) { _mixpanel = v; hookMixpanel(); },
      });
    }
  } catch (e) {}

  try {
    var gtagDesc = Object.getOwnPropertyDescriptor(window, 'gtag');
    if (!gtagDesc || gtagDesc.configurable) {
      var _gtag = window.gtag;
      Object.defineProperty(window, 'gtag', {
        configurable: true,
        get: function() { return _gtag; },
        set: function(v) { _gtag = v; hookGtag(); },
      });
    }
  } catch (e) {}

  var attempts = 0;
  var poll = setInterval(function() {
    attempts++;
    attempt();
    if (attempts >= 20) clearInterval(poll);
  }, 200);

  document.addEventListener('DOMContentLoaded', attempt);
  window.addEventListener('load', attempt);

  try {
    var origPush = history.pushState;
    var origReplace = history.replaceState;
    history.pushState = function() { return origPush.apply(history, arguments); };
    history.replaceState = function() { return origReplace.apply(history, arguments); };
  } catch (e) {}
})();
`

// anchorAuditScript enumerates every anchor on the page, records
// visibility/nearest-heading/UTM/selector metadata, then performs the
// active click audit on up to 20 visible anchors: it attaches a
// preventDefault-only click listener, synthesizes mousedown/mouseup/
// click, waits, attributes any tracking events logged since that
// anchor's own audit began to that anchor, then removes the listener. It
// returns the full enriched anchor list as JSON.
const anchorAuditScript = `
(function(baselineIndex) {
  function isVisible(el) {
    var rect = el.getBoundingClientRect();
    if (rect.width === 0 && rect.height === 0) return false;
    var style = window.getComputedStyle(el);
    if (style.display === 'none' || style.visibility === 'hidden' || style.opacity === '0') return false;
    return true;
  }

  function nearestHeading(el) {
    var node = el;
    while (node) {
      var sib = node.previousElementSibling;
      while (sib) {
        if (/^H[1-6]$/.test(sib.tagName)) return sib.textContent.trim();
        var nested = sib.querySelector && sib.querySelector('h1, h2, h3, h4, h5, h6');
        if (nested) return nested.textContent.trim();
        sib = sib.previousElementSibling;
      }
      node = node.parentElement;
      if (node && /^H[1-6]$/.test(node.tagName)) return node.textContent.trim();
    }
    return '';
  }

  function cssSelector(el) {
    var parts = [];
    var node = el;
    while (node && node.nodeType === 1 && node.tagName !== 'BODY') {
      var part = node.tagName.toLowerCase();
      if (node.className && typeof node.className === 'string') {
        var first = node.className.trim().split(/\s+/)[0];
        if (first) part += '.' + first;
      }
      var parent = node.parentElement;
      if (parent) {
        var sameTag = Array.prototype.filter.call(parent.children, function(c) { return c.tagName === node.tagName; });
        if (sameTag.length > 1) {
          part += ':nth-of-type(' + (sameTag.indexOf(node) + 1) + ')';
        }
      }
      parts.unshift(part);
      node = parent;
    }
    return parts.join(' > ');
  }

  function utmParams(href) {
    var out = {};
    try {
      var u = new URL(href, location.href);
      u.searchParams.forEach(function(v, k) {
        if (/^utm_/i.test(k)) out[k] = v;
      });
    } catch (e) {}
    return out;
  }

  var anchors = Array.prototype.slice.call(document.querySelectorAll('a[href]'));
  var results = anchors.map(function(a) {
    return {
      url: a.href,
      innerText: (a.textContent || '').trim(),
      visible: isVisible(a),
      nearestHeading: nearestHeading(a),
      utmParams: utmParams(a.getAttribute('href')),
      cssSelector: cssSelector(a),
      trackingConfig: [],
    };
  });

  var visibleAnchors = results.filter(function(r) { return r.visible; }).slice(0, 20);

  function auditOne(index, done) {
    if (index >= visibleAnchors.length) return done();
    var entry = visibleAnchors[index];
    var el = document.querySelector(entry.cssSelector) || anchors[results.indexOf(entry)];
    if (!el) return auditOne(index + 1, done);

    var startLen = window.__trackingLog ? window.__trackingLog.length : baselineIndex;
    var handler = function(ev) { ev.preventDefault(); };
    el.addEventListener('click', handler);
    el.dispatchEvent(new MouseEvent('mousedown', { bubbles: true }));
    el.dispatchEvent(new MouseEvent('mouseup', { bubbles: true }));
    el.dispatchEvent(new MouseEvent('click', { bubbles: true, cancelable: true }));

    setTimeout(function() {
      var log = window.__trackingLog || [];
      entry.trackingConfig = log.slice(startLen);
      el.removeEventListener('click', handler);
      auditOne(index + 1, done);
    }, 300);
  }

  return new Promise(function(resolve) {
    auditOne(0, function() { resolve(results); });
  });
})
`
