package stream

import (
	"tap-instagram/pkg/schema"
)

// Definition is the static declaration of one stream
type Definition struct {
	Name string
	// Path is a template such as "/{instagram_id}"; placeholders come from the parent's context
	Path string
	// Params are fixed query parameters sent with the first request of every partition
	Params map[string]string
	// RecordsPath is the JSONPath selector of the records in a response
	RecordsPath string
	// NextPagePath locates the absolute URL of the next page, if the endpoint paginates
	NextPagePath string
	PrimaryKeys  []string
	// ReplicationKey is empty for full-refresh streams
	ReplicationKey string
	Schema         schema.Schema
	Parent         string
	// ChildContext maps each context key handed to children to the record field it is read from
	ChildContext map[string]string
}

const (
	PagesStream    = "facebook pages"
	AccountsStream = "instagram accounts"
	MediaStream    = "media"
	StoriesStream  = "stories"
)

const mediaFields = "media{id,caption,media_type,like_count,comments_count,media_url,comments,media_product_type,insights.metric(reach,impressions)}"

const storiesFields = "stories{id,caption,media_type,media_url,media_product_type,insights.metric(impressions,reach,taps_forward,taps_back,exits,replies)}"

func insightsType() schema.Type {
	return schema.Object(
		schema.Prop("data", schema.ArrayOf(schema.Object(
			schema.Prop("name", schema.String()),
			schema.Prop("period", schema.DateTime()),
			schema.Prop("values", schema.ArrayOf(schema.Object(
				schema.Prop("value", schema.Integer()),
			))),
		))),
	)
}

// Definitions returns the Instagram streams in declaration order. Children
// follow their parent and siblings keep this order during a sync.
func Definitions() []Definition {
	return []Definition{
		{
			Name:         PagesStream,
			Path:         "/me/accounts",
			RecordsPath:  "$.data[*]",
			NextPagePath: "$.paging.next",
			PrimaryKeys:  []string{"id"},
			Schema: schema.New(
				schema.Prop("id", schema.String()),
				schema.Prop("category", schema.String()),
				schema.Prop("name", schema.String()),
				schema.Prop("tasks", schema.ArrayOf(schema.String())),
				schema.Prop("category_list", schema.ArrayOf(schema.Object(
					schema.Prop("id", schema.String()),
					schema.Prop("name", schema.String()),
				))),
			),
			ChildContext: map[string]string{"account_id": "id"},
		},
		{
			Name:        AccountsStream,
			Path:        "/{account_id}",
			Params:      map[string]string{"fields": "instagram_business_account"},
			RecordsPath: "$.instagram_business_account",
			PrimaryKeys: []string{"id"},
			Schema: schema.New(
				schema.Prop("id", schema.String()),
			),
			Parent:       PagesStream,
			ChildContext: map[string]string{"instagram_id": "id"},
		},
		{
			Name:         MediaStream,
			Path:         "/{instagram_id}",
			Params:       map[string]string{"fields": mediaFields},
			RecordsPath:  "$.media.data[*]",
			NextPagePath: "$.media.paging.next",
			PrimaryKeys:  []string{"id"},
			Schema: schema.New(
				schema.Prop("id", schema.String()),
				schema.Prop("caption", schema.String()),
				schema.Prop("media_type", schema.String()),
				schema.Prop("like_count", schema.Integer()),
				schema.Prop("comments_count", schema.Integer()),
				schema.Prop("media_url", schema.String()),
				schema.Prop("comments", schema.Object(
					schema.Prop("data", schema.ArrayOf(schema.Object(
						schema.Prop("id", schema.String()),
						schema.Prop("timestamp", schema.DateTime()),
						schema.Prop("text", schema.String()),
					))),
				)),
				schema.Prop("media_product_type", schema.String()),
				schema.Prop("insights", insightsType()),
			),
			Parent: AccountsStream,
		},
		{
			Name:         StoriesStream,
			Path:         "/{instagram_id}",
			Params:       map[string]string{"fields": storiesFields},
			RecordsPath:  "$.stories.data[*]",
			NextPagePath: "$.stories.paging.next",
			PrimaryKeys:  []string{"id"},
			Schema: schema.New(
				schema.Prop("id", schema.String()),
				schema.Prop("caption", schema.String()),
				schema.Prop("media_type", schema.String()),
				schema.Prop("media_url", schema.String()),
				schema.Prop("media_product_type", schema.String()),
				schema.Prop("insights", insightsType()),
			),
			Parent: AccountsStream,
		},
	}
}
