package permission

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestEvaluate(t *testing.T) {
	Convey("Permission evaluation", t, func() {
		h := NewHandler()

		Convey("admin role satisfies every requirement", func() {
			p := Principal{Subject: "user-1", Roles: []string{AdminRole}}
			So(h.Evaluate(p, NewRequirement(MessageAdmin)), ShouldEqual, Succeed)
			So(h.Evaluate(p, NewRequirement(MessageUser)), ShouldEqual, Succeed)
			So(h.Evaluate(p, NewRequirement("never:registered")), ShouldEqual, Succeed)
		})

		Convey("permission claim grants exactly its permission", func() {
			p := Principal{
				Subject: "user-2",
				Roles:   []string{"User"},
				Claims:  []Claim{{Type: ClaimTypePermission, Value: MessageUser}},
			}
			So(h.Evaluate(p, NewRequirement(MessageUser)), ShouldEqual, Succeed)
			So(h.Evaluate(p, NewRequirement(MessageAdmin)), ShouldEqual, Fail)
		})

		Convey("combined scope value matches by containment", func() {
			p := Principal{
				Subject: "user-3",
				Claims:  []Claim{{Type: ClaimTypeScope, Value: "openid profile message:admin"}},
			}
			So(h.Evaluate(p, NewRequirement(MessageAdmin)), ShouldEqual, Succeed)
			So(h.Evaluate(p, NewRequirement(MessageUser)), ShouldEqual, Fail)
		})

		Convey("claims of other types are ignored", func() {
			p := Principal{
				Subject: "user-4",
				Claims:  []Claim{{Type: "email", Value: MessageAdmin}},
			}
			So(h.Evaluate(p, NewRequirement(MessageAdmin)), ShouldEqual, Fail)
		})

		Convey("no roles and no claims fails", func() {
			So(h.Evaluate(Principal{Subject: "user-5"}, NewRequirement(MessageUser)), ShouldEqual, Fail)
		})
	})
}

func TestRegistry(t *testing.T) {
	Convey("Policy registry", t, func() {
		r := NewRegistry()

		Convey("derives one policy per known claim", func() {
			So(r.Len(), ShouldEqual, len(All))
			for _, claim := range All {
				req, err := r.Policy(claim)
				So(err, ShouldBeNil)
				So(req.Permission, ShouldEqual, claim)
			}
		})

		Convey("unknown permission has no policy", func() {
			_, err := r.Policy("message:other")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestRoleClaims(t *testing.T) {
	Convey("Role claim sets", t, func() {
		So(AdminClaims(), ShouldResemble, []string{MessageAdmin, MessageUser})
		So(AppUserClaims(), ShouldResemble, []string{MessageUser})
	})
}
