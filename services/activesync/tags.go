package activesync

import "github.com/syncgate/syncgate/internal/wbxml"

// Tag shorthands per codepage. Handlers read like the XML they emit.

func air(token byte) wbxml.Tag {
	return wbxml.Tag{Page: wbxml.PageAirSync, Token: token}
}

func email(token byte) wbxml.Tag {
	return wbxml.Tag{Page: wbxml.PageEmail, Token: token}
}

func base(token byte) wbxml.Tag {
	return wbxml.Tag{Page: wbxml.PageAirSyncBase, Token: token}
}

func folder(token byte) wbxml.Tag {
	return wbxml.Tag{Page: wbxml.PageFolderHierarchy, Token: token}
}

func estimate(token byte) wbxml.Tag {
	return wbxml.Tag{Page: wbxml.PageGetItemEstimate, Token: token}
}

func ping(token byte) wbxml.Tag {
	return wbxml.Tag{Page: wbxml.PagePing, Token: token}
}

func provision(token byte) wbxml.Tag {
	return wbxml.Tag{Page: wbxml.PageProvision, Token: token}
}

func itemops(token byte) wbxml.Tag {
	return wbxml.Tag{Page: wbxml.PageItemOperations, Token: token}
}
