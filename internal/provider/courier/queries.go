package courier

import "github.com/lu-zhengda/courier/internal/provider"

const messageFields = `
      messageId
      title
      body
      preview
      created
      archived
      read
      opened
      tags
      data
      actions {
        content
        href
        data
      }
      trackingIds {
        archiveTrackingId
        openTrackingId
        clickTrackingId
        deliverTrackingId
        readTrackingId
        unreadTrackingId
      }`

const messagesQuery = `query GetInboxMessages($params: FilterParamsInput, $limit: Int = 32, $after: String) {
  messages(params: $params, limit: $limit, after: $after) {
    totalCount
    pageInfo {
      startCursor
      hasNextPage
    }
    nodes {` + messageFields + `
    }
  }
}`

const unreadCountQuery = `query GetUnreadCount($params: FilterParamsInput) {
  count(params: $params)
}`

var mutationQueries = map[provider.MutationKind]string{
	provider.MutationRead:        `mutation TrackEvent($messageId: String!) { read(messageId: $messageId) }`,
	provider.MutationUnread:      `mutation TrackEvent($messageId: String!) { unread(messageId: $messageId) }`,
	provider.MutationOpen:        `mutation TrackEvent($messageId: String!) { opened(messageId: $messageId) }`,
	provider.MutationArchive:     `mutation TrackEvent($messageId: String!) { archive(messageId: $messageId) }`,
	provider.MutationClick:       `mutation TrackEvent($messageId: String!, $trackingId: String!) { clicked(messageId: $messageId, trackingId: $trackingId) }`,
	provider.MutationMarkAllRead: `mutation TrackEvent { markAllRead }`,
}

type messagesData struct {
	Messages messagesConnection `json:"messages"`
}

type countData struct {
	Count int `json:"count"`
}

type messagesConnection struct {
	TotalCount int           `json:"totalCount"`
	PageInfo   pageInfo      `json:"pageInfo"`
	Nodes      []messageNode `json:"nodes"`
}

type pageInfo struct {
	StartCursor *string `json:"startCursor"`
	HasNextPage bool    `json:"hasNextPage"`
}

type messageNode struct {
	MessageID   string         `json:"messageId"`
	Title       string         `json:"title"`
	Body        string         `json:"body"`
	Preview     string         `json:"preview"`
	Created     string         `json:"created"`
	Archived    *string        `json:"archived"`
	Read        *string        `json:"read"`
	Opened      *string        `json:"opened"`
	Tags        []string       `json:"tags"`
	Data        map[string]any `json:"data"`
	Actions     []actionNode   `json:"actions"`
	TrackingIDs *trackingNode  `json:"trackingIds"`
}

type actionNode struct {
	Content string         `json:"content"`
	Href    string         `json:"href"`
	Data    map[string]any `json:"data"`
}

type trackingNode struct {
	ArchiveTrackingID string `json:"archiveTrackingId"`
	OpenTrackingID    string `json:"openTrackingId"`
	ClickTrackingID   string `json:"clickTrackingId"`
	DeliverTrackingID string `json:"deliverTrackingId"`
	ReadTrackingID    string `json:"readTrackingId"`
	UnreadTrackingID  string `json:"unreadTrackingId"`
}
