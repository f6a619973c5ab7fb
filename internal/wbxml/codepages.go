package wbxml

// Codepage indexes per MS-ASWBXML.
const (
	PageAirSync           byte = 0x00
	PagePOOMContacts      byte = 0x01
	PageEmail             byte = 0x02
	PageAirNotify         byte = 0x03
	PageCalendar          byte = 0x04
	PageMove              byte = 0x05
	PageGetItemEstimate   byte = 0x06
	PageFolderHierarchy   byte = 0x07
	PageMeetingResponse   byte = 0x08
	PageTasks             byte = 0x09
	PageResolveRecipients byte = 0x0A
	PageValidateCert      byte = 0x0B
	PageContacts2         byte = 0x0C
	PagePing              byte = 0x0D
	PageProvision         byte = 0x0E
	PageSearch            byte = 0x0F
	PageGAL               byte = 0x10
	PageAirSyncBase       byte = 0x11
	PageSettings          byte = 0x12
	PageDocumentLibrary   byte = 0x13
	PageItemOperations    byte = 0x14
	PageComposeMail       byte = 0x15
	PageEmail2            byte = 0x16
	PageNotes             byte = 0x17
	PageRightsManagement  byte = 0x18
)

// AirSync (codepage 0)
const (
	AirSyncSync             byte = 0x05
	AirSyncResponses        byte = 0x06
	AirSyncAdd              byte = 0x07
	AirSyncChange           byte = 0x08
	AirSyncDelete           byte = 0x09
	AirSyncFetch            byte = 0x0A
	AirSyncSyncKey          byte = 0x0B
	AirSyncClientId         byte = 0x0C
	AirSyncServerId         byte = 0x0D
	AirSyncStatus           byte = 0x0E
	AirSyncCollection       byte = 0x0F
	AirSyncClass            byte = 0x10
	AirSyncVersion          byte = 0x11
	AirSyncCollectionId     byte = 0x12
	AirSyncGetChanges       byte = 0x13
	AirSyncMoreAvailable    byte = 0x14
	AirSyncWindowSize       byte = 0x15
	AirSyncCommands         byte = 0x16
	AirSyncOptions          byte = 0x17
	AirSyncFilterType       byte = 0x18
	AirSyncTruncation       byte = 0x19
	AirSyncRTFTruncation    byte = 0x1A
	AirSyncConflict         byte = 0x1B
	AirSyncCollections      byte = 0x1C
	AirSyncApplicationData  byte = 0x1D
	AirSyncDeletesAsMoves   byte = 0x1E
	AirSyncNotifyGUID       byte = 0x1F
	AirSyncSupported        byte = 0x20
	AirSyncSoftDelete       byte = 0x21
	AirSyncMIMESupport      byte = 0x22
	AirSyncMIMETruncation   byte = 0x23
	AirSyncWait             byte = 0x24
	AirSyncLimit            byte = 0x25
	AirSyncPartial          byte = 0x26
	AirSyncConversationMode byte = 0x27
	AirSyncMaxItems         byte = 0x28
	AirSyncHeartbeatInt     byte = 0x29
)

// Email (codepage 2)
const (
	EmailAttachment      byte = 0x05
	EmailAttachments     byte = 0x06
	EmailAttName         byte = 0x07
	EmailAttSize         byte = 0x08
	EmailAtt0Id          byte = 0x09
	EmailAttMethod       byte = 0x0A
	EmailAttRemoved      byte = 0x0B
	EmailBody            byte = 0x0C
	EmailBodySize        byte = 0x0D
	EmailBodyTruncated   byte = 0x0E
	EmailDateReceived    byte = 0x0F
	EmailDisplayName     byte = 0x10
	EmailDisplayTo       byte = 0x11
	EmailImportance      byte = 0x12
	EmailMessageClass    byte = 0x13
	EmailSubject         byte = 0x14
	EmailRead            byte = 0x15
	EmailTo              byte = 0x16
	EmailCc              byte = 0x17
	EmailFrom            byte = 0x18
	EmailReplyTo         byte = 0x19
	EmailThreadTopic     byte = 0x35
	EmailMIMEData        byte = 0x36
	EmailMIMETruncated   byte = 0x37
	EmailMIMESize        byte = 0x38
	EmailInternetCPID    byte = 0x39
	EmailFlag            byte = 0x3A
	EmailFlagStatus      byte = 0x3B
	EmailContentClass    byte = 0x3C
	EmailFlagType        byte = 0x3D
	EmailCompleteTime    byte = 0x3E
	EmailDisallowNewTime byte = 0x3F
)

// GetItemEstimate (codepage 6)
const (
	EstimateGetItemEstimate byte = 0x05
	EstimateVersion         byte = 0x06
	EstimateCollections     byte = 0x07
	EstimateCollection      byte = 0x08
	EstimateClass           byte = 0x09
	EstimateCollectionId    byte = 0x0A
	EstimateDateFilter      byte = 0x0B
	EstimateEstimate        byte = 0x0C
	EstimateResponse        byte = 0x0D
	EstimateStatus          byte = 0x0E
)

// FolderHierarchy (codepage 7)
const (
	FolderFolders      byte = 0x05
	FolderFolder       byte = 0x06
	FolderDisplayName  byte = 0x07
	FolderServerId     byte = 0x08
	FolderParentId     byte = 0x09
	FolderType         byte = 0x0A
	FolderResponse     byte = 0x0B
	FolderStatus       byte = 0x0C
	FolderContentClass byte = 0x0D
	FolderChanges      byte = 0x0E
	FolderAdd          byte = 0x0F
	FolderDelete       byte = 0x10
	FolderUpdate       byte = 0x11
	FolderSyncKey      byte = 0x12
	FolderFolderCreate byte = 0x13
	FolderFolderDelete byte = 0x14
	FolderFolderUpdate byte = 0x15
	FolderFolderSync   byte = 0x16
	FolderCount        byte = 0x17
)

// Ping (codepage 13)
const (
	PingPing              byte = 0x05
	PingAutdState         byte = 0x06
	PingStatus            byte = 0x07
	PingHeartbeatInterval byte = 0x08
	PingFolders           byte = 0x09
	PingFolder            byte = 0x0A
	PingId                byte = 0x0B
	PingClass             byte = 0x0C
	PingMaxFolders        byte = 0x0D
)

// Provision (codepage 14)
const (
	ProvisionProvision       byte = 0x05
	ProvisionPolicies        byte = 0x06
	ProvisionPolicy          byte = 0x07
	ProvisionPolicyType      byte = 0x08
	ProvisionPolicyKey       byte = 0x09
	ProvisionData            byte = 0x0A
	ProvisionStatus          byte = 0x0B
	ProvisionRemoteWipe      byte = 0x0C
	ProvisionEASProvisionDoc byte = 0x0D
)

// AirSyncBase (codepage 17)
const (
	BaseBodyPreference     byte = 0x05
	BaseType               byte = 0x06
	BaseTruncationSize     byte = 0x07
	BaseAllOrNone          byte = 0x08
	BaseBody               byte = 0x0A
	BaseData               byte = 0x0B
	BaseEstimatedDataSize  byte = 0x0C
	BaseTruncated          byte = 0x0D
	BaseAttachments        byte = 0x0E
	BaseAttachment         byte = 0x0F
	BaseDisplayName        byte = 0x10
	BaseFileReference      byte = 0x11
	BaseMethod             byte = 0x12
	BaseContentId          byte = 0x13
	BaseContentLocation    byte = 0x14
	BaseIsInline           byte = 0x15
	BaseNativeBodyType     byte = 0x16
	BaseContentType        byte = 0x17
	BasePreview            byte = 0x18
	BaseBodyPartPreference byte = 0x19
	BaseBodyPart           byte = 0x1A
	BaseStatus             byte = 0x1B
)

// ItemOperations (codepage 20)
const (
	ItemOpsItemOperations     byte = 0x05
	ItemOpsFetch              byte = 0x06
	ItemOpsStore              byte = 0x07
	ItemOpsOptions            byte = 0x08
	ItemOpsRange              byte = 0x09
	ItemOpsTotal              byte = 0x0A
	ItemOpsProperties         byte = 0x0B
	ItemOpsData               byte = 0x0C
	ItemOpsStatus             byte = 0x0D
	ItemOpsResponse           byte = 0x0E
	ItemOpsVersion            byte = 0x0F
	ItemOpsSchema             byte = 0x10
	ItemOpsPart               byte = 0x11
	ItemOpsEmptyFolderContent byte = 0x12
	ItemOpsDeleteSubFolders   byte = 0x13
	ItemOpsUserName           byte = 0x14
	ItemOpsPassword           byte = 0x15
	ItemOpsMove               byte = 0x16
	ItemOpsDstFldId           byte = 0x17
	ItemOpsConversationId     byte = 0x18
	ItemOpsMoveAlways         byte = 0x19
)

// CodePage maps token ids to element names within one codepage.
type CodePage map[byte]string

// CodeSpace maps codepage indexes to their token tables.
type CodeSpace map[byte]CodePage

// PageNames holds the MS-ASWBXML namespace name per codepage, for
// diagnostics and schema checks. Every page is named even when its token
// table is not populated.
var PageNames = map[byte]string{
	PageAirSync:           "AirSync",
	PagePOOMContacts:      "Contacts",
	PageEmail:             "Email",
	PageAirNotify:         "AirNotify",
	PageCalendar:          "Calendar",
	PageMove:              "Move",
	PageGetItemEstimate:   "GetItemEstimate",
	PageFolderHierarchy:   "FolderHierarchy",
	PageMeetingResponse:   "MeetingResponse",
	PageTasks:             "Tasks",
	PageResolveRecipients: "ResolveRecipients",
	PageValidateCert:      "ValidateCert",
	PageContacts2:         "Contacts2",
	PagePing:              "Ping",
	PageProvision:         "Provision",
	PageSearch:            "Search",
	PageGAL:               "GAL",
	PageAirSyncBase:       "AirSyncBase",
	PageSettings:          "Settings",
	PageDocumentLibrary:   "DocumentLibrary",
	PageItemOperations:    "ItemOperations",
	PageComposeMail:       "ComposeMail",
	PageEmail2:            "Email2",
	PageNotes:             "Notes",
	PageRightsManagement:  "RightsManagement",
}

// ActiveSyncTags is the token table for the codepages this gateway speaks.
// Token ids follow MS-ASWBXML verbatim.
var ActiveSyncTags = CodeSpace{
	PageAirSync: {
		AirSyncSync:             "Sync",
		AirSyncResponses:        "Responses",
		AirSyncAdd:              "Add",
		AirSyncChange:           "Change",
		AirSyncDelete:           "Delete",
		AirSyncFetch:            "Fetch",
		AirSyncSyncKey:          "SyncKey",
		AirSyncClientId:         "ClientId",
		AirSyncServerId:         "ServerId",
		AirSyncStatus:           "Status",
		AirSyncCollection:       "Collection",
		AirSyncClass:            "Class",
		AirSyncVersion:          "Version",
		AirSyncCollectionId:     "CollectionId",
		AirSyncGetChanges:       "GetChanges",
		AirSyncMoreAvailable:    "MoreAvailable",
		AirSyncWindowSize:       "WindowSize",
		AirSyncCommands:         "Commands",
		AirSyncOptions:          "Options",
		AirSyncFilterType:       "FilterType",
		AirSyncTruncation:       "Truncation",
		AirSyncRTFTruncation:    "RTFTruncation",
		AirSyncConflict:         "Conflict",
		AirSyncCollections:      "Collections",
		AirSyncApplicationData:  "ApplicationData",
		AirSyncDeletesAsMoves:   "DeletesAsMoves",
		AirSyncNotifyGUID:       "NotifyGUID",
		AirSyncSupported:        "Supported",
		AirSyncSoftDelete:       "SoftDelete",
		AirSyncMIMESupport:      "MIMESupport",
		AirSyncMIMETruncation:   "MIMETruncation",
		AirSyncWait:             "Wait",
		AirSyncLimit:            "Limit",
		AirSyncPartial:          "Partial",
		AirSyncConversationMode: "ConversationMode",
		AirSyncMaxItems:         "MaxItems",
		AirSyncHeartbeatInt:     "HeartbeatInterval",
	},
	PageEmail: {
		EmailAttachment:      "Attachment",
		EmailAttachments:     "Attachments",
		EmailAttName:         "AttName",
		EmailAttSize:         "AttSize",
		EmailAtt0Id:          "Att0Id",
		EmailAttMethod:       "AttMethod",
		EmailAttRemoved:      "AttRemoved",
		EmailBody:            "Body",
		EmailBodySize:        "BodySize",
		EmailBodyTruncated:   "BodyTruncated",
		EmailDateReceived:    "DateReceived",
		EmailDisplayName:     "DisplayName",
		EmailDisplayTo:       "DisplayTo",
		EmailImportance:      "Importance",
		EmailMessageClass:    "MessageClass",
		EmailSubject:         "Subject",
		EmailRead:            "Read",
		EmailTo:              "To",
		EmailCc:              "Cc",
		EmailFrom:            "From",
		EmailReplyTo:         "ReplyTo",
		EmailThreadTopic:     "ThreadTopic",
		EmailMIMEData:        "MIMEData",
		EmailMIMETruncated:   "MIMETruncated",
		EmailMIMESize:        "MIMESize",
		EmailInternetCPID:    "InternetCPID",
		EmailFlag:            "Flag",
		EmailFlagStatus:      "FlagStatus",
		EmailContentClass:    "ContentClass",
		EmailFlagType:        "FlagType",
		EmailCompleteTime:    "CompleteTime",
		EmailDisallowNewTime: "DisallowNewTimeProposal",
	},
	PageGetItemEstimate: {
		EstimateGetItemEstimate: "GetItemEstimate",
		EstimateVersion:         "Version",
		EstimateCollections:     "Collections",
		EstimateCollection:      "Collection",
		EstimateClass:           "Class",
		EstimateCollectionId:    "CollectionId",
		EstimateDateFilter:      "DateFilter",
		EstimateEstimate:        "Estimate",
		EstimateResponse:        "Response",
		EstimateStatus:          "Status",
	},
	PageFolderHierarchy: {
		FolderFolders:      "Folders",
		FolderFolder:       "Folder",
		FolderDisplayName:  "DisplayName",
		FolderServerId:     "ServerId",
		FolderParentId:     "ParentId",
		FolderType:         "Type",
		FolderResponse:     "Response",
		FolderStatus:       "Status",
		FolderContentClass: "ContentClass",
		FolderChanges:      "Changes",
		FolderAdd:          "Add",
		FolderDelete:       "Delete",
		FolderUpdate:       "Update",
		FolderSyncKey:      "SyncKey",
		FolderFolderCreate: "FolderCreate",
		FolderFolderDelete: "FolderDelete",
		FolderFolderUpdate: "FolderUpdate",
		FolderFolderSync:   "FolderSync",
		FolderCount:        "Count",
	},
	PagePing: {
		PingPing:              "Ping",
		PingAutdState:         "AutdState",
		PingStatus:            "Status",
		PingHeartbeatInterval: "HeartbeatInterval",
		PingFolders:           "Folders",
		PingFolder:            "Folder",
		PingId:                "Id",
		PingClass:             "Class",
		PingMaxFolders:        "MaxFolders",
	},
	PageProvision: {
		ProvisionProvision:       "Provision",
		ProvisionPolicies:        "Policies",
		ProvisionPolicy:          "Policy",
		ProvisionPolicyType:      "PolicyType",
		ProvisionPolicyKey:       "PolicyKey",
		ProvisionData:            "Data",
		ProvisionStatus:          "Status",
		ProvisionRemoteWipe:      "RemoteWipe",
		ProvisionEASProvisionDoc: "EASProvisionDoc",
	},
	PageAirSyncBase: {
		BaseBodyPreference:     "BodyPreference",
		BaseType:               "Type",
		BaseTruncationSize:     "TruncationSize",
		BaseAllOrNone:          "AllOrNone",
		BaseBody:               "Body",
		BaseData:               "Data",
		BaseEstimatedDataSize:  "EstimatedDataSize",
		BaseTruncated:          "Truncated",
		BaseAttachments:        "Attachments",
		BaseAttachment:         "Attachment",
		BaseDisplayName:        "DisplayName",
		BaseFileReference:      "FileReference",
		BaseMethod:             "Method",
		BaseContentId:          "ContentId",
		BaseContentLocation:    "ContentLocation",
		BaseIsInline:           "IsInline",
		BaseNativeBodyType:     "NativeBodyType",
		BaseContentType:        "ContentType",
		BasePreview:            "Preview",
		BaseBodyPartPreference: "BodyPartPreference",
		BaseBodyPart:           "BodyPart",
		BaseStatus:             "Status",
	},
	PageItemOperations: {
		ItemOpsItemOperations:     "ItemOperations",
		ItemOpsFetch:              "Fetch",
		ItemOpsStore:              "Store",
		ItemOpsOptions:            "Options",
		ItemOpsRange:              "Range",
		ItemOpsTotal:              "Total",
		ItemOpsProperties:         "Properties",
		ItemOpsData:               "Data",
		ItemOpsStatus:             "Status",
		ItemOpsResponse:           "Response",
		ItemOpsVersion:            "Version",
		ItemOpsSchema:             "Schema",
		ItemOpsPart:               "Part",
		ItemOpsEmptyFolderContent: "EmptyFolderContents",
		ItemOpsDeleteSubFolders:   "DeleteSubFolders",
		ItemOpsUserName:           "UserName",
		ItemOpsPassword:           "Password",
		ItemOpsMove:               "Move",
		ItemOpsDstFldId:           "DstFldId",
		ItemOpsConversationId:     "ConversationId",
		ItemOpsMoveAlways:         "MoveAlways",
	},
}

// TagName resolves a (page, token) pair for log output. Unknown tokens are
// rendered as hex so malformed traffic stays debuggable.
func TagName(page, token byte) string {
	if cp, ok := ActiveSyncTags[page]; ok {
		if name, ok := cp[token&0x3F]; ok {
			return name
		}
	}
	return hexTagName(page, token)
}
