package browser

import (
	"fmt"

	"agoda-scraper/fingerprint"

	"github.com/chromedp/chromedp"
)

// StealthOpts returns ChromeDP browser launch options that hide
// automation.
//
// Key flags:
//   - disable-blink-features=AutomationControlled → removes navigator.webdriver flag
//   - headless=new → uses Chrome's newer headless mode (harder to detect)
//   - WindowSize → bots often have tiny/default windows; we set the
//     identity's viewport so window and reported metrics agree
func StealthOpts(id fingerprint.Identity, headless bool) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("excludeSwitches", "enable-automation"),
		chromedp.Flag("useAutomationExtension", false),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.Flag("window-position", "0,0"),
		chromedp.WindowSize(id.Viewport.Width, id.Viewport.Height),
		chromedp.UserAgent(id.UserAgent),
		chromedp.Flag("lang", id.Locale),
	}

	if headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	}

	return opts
}

// hideWebDriverScript is injected before any page script runs. Even
// with the launch flags above, Agoda runs JS checks on the page
// itself; this patches the properties those checks read.
const hideWebDriverScript = `
	Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
	Object.defineProperty(navigator, 'plugins', {
		get: () => {
			const plugins = [
				{ name: 'Chrome PDF Plugin', filename: 'internal-pdf-viewer' },
				{ name: 'Chrome PDF Viewer', filename: 'mhjfbmdgcfjbbpaeojofohoefgiehjai' },
				{ name: 'Native Client', filename: 'internal-nacl-plugin' },
			];
			plugins.length = 3;
			return plugins;
		}
	});
	window.chrome = { runtime: {}, loadTimes: function() {}, csi: function() {}, app: {} };
`

// languagesScript reports the identity's locale first, matching the
// Accept-Language override.
func languagesScript(locale string) string {
	return fmt.Sprintf(`
		Object.defineProperty(navigator, 'languages', { get: () => ['%s', 'en'] });
	`, locale)
}
