package mongodb

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Filter and update documents, kept as plain functions so their exact shape
// is testable without a server.

// newestFirst breaks createdAt ties (millisecond precision) on _id, so a
// page boundary never splits two equal timestamps differently between pages.
var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

func idFilter(id bson.ObjectID) bson.M {
	return bson.M{"_id": id}
}

// tagFilter matches any array element exactly (case-sensitive).
func tagFilter(tag string) bson.M {
	return bson.M{"tags": tag}
}

// textFilter uses the text index over title and content.
func textFilter(query string) bson.M {
	return bson.M{"$text": bson.M{"$search": query}}
}

// patternFilter: case-insensitive regex on title or content, or an exact tag.
// The pattern goes to the server unescaped.
func patternFilter(pattern string) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"title": bson.M{"$regex": pattern, "$options": "i"}},
		bson.M{"content": bson.M{"$regex": pattern, "$options": "i"}},
		bson.M{"tags": pattern},
	}}
}

func incrementViewsUpdate() bson.M {
	return bson.M{"$inc": bson.M{"views": 1}}
}

func replaceContentUpdate(title, content string, tags []string, updatedAt time.Time) bson.M {
	return bson.M{"$set": bson.M{
		"title":     title,
		"content":   content,
		"tags":      tags,
		"updatedAt": updatedAt,
	}}
}

// appendCommentUpdate pushes c and moves updatedAt forward to c.CreatedAt.
// $max never moves it back when a slower concurrent append lands second.
func appendCommentUpdate(c commentDoc) bson.M {
	return bson.M{
		"$push": bson.M{"comments": c},
		"$max":  bson.M{"updatedAt": c.CreatedAt},
	}
}

// withoutPassword is the projection for every user read except login.
var withoutPassword = bson.M{"password": 0}
