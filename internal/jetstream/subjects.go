package jetstream

import "fmt"

// DefaultAPIPrefix is the subject prefix JetStream management RPCs are sent
// under when a context does not override it.
const DefaultAPIPrefix = "$JS.API"

func consumerCreateSubject(prefix, stream string) string {
	return fmt.Sprintf("%s.CONSUMER.CREATE.%s", prefix, stream)
}

func consumerInfoSubject(prefix, stream, name string) string {
	return fmt.Sprintf("%s.CONSUMER.INFO.%s.%s", prefix, stream, name)
}

func consumerDeleteSubject(prefix, stream, name string) string {
	return fmt.Sprintf("%s.CONSUMER.DELETE.%s.%s", prefix, stream, name)
}

func consumerMsgNextSubject(prefix, stream, name string) string {
	return fmt.Sprintf("%s.CONSUMER.MSG.NEXT.%s.%s", prefix, stream, name)
}

func directGetSubject(stream string) string {
	return fmt.Sprintf("%s.DIRECT.GET.%s", DefaultAPIPrefix, stream)
}

func streamNamesSubject(prefix string) string {
	return fmt.Sprintf("%s.STREAM.NAMES", prefix)
}
