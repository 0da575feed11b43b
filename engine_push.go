package goLMS

import (
	"context"

	"github.com/MrEthical07/goLMS/channel"
	"github.com/MrEthical07/goLMS/notify"
	"github.com/golang/glog"
)

// ResourceAnnouncements is the cache resource of course announcements.
const ResourceAnnouncements = "announcements"

// wirePushInvalidation subscribes the cache to server push events. Each
// event marks the affected cached queries stale; nothing is refetched until
// the next read.
func (c *Client) wirePushInvalidation() []func() {
	return []func(){
		channel.Subscribe(c.push, channel.NotificationCreated, func(ev channel.NotificationEvent) {
			c.metricInc(MetricPushEvent)
			c.cache.InvalidateResource(ResourceNotifications)
			if ev.Title != "" {
				c.notices.Notify(context.Background(), notify.Info("push", ev.Title))
			}
		}),
		channel.Subscribe(c.push, channel.NotificationRead, func(channel.NotificationReadEvent) {
			c.metricInc(MetricPushEvent)
			c.cache.InvalidateResource(ResourceNotifications)
		}),
		channel.Subscribe(c.push, channel.NotificationsAllRead, func(channel.AllReadEvent) {
			c.metricInc(MetricPushEvent)
			c.cache.InvalidateResource(ResourceNotifications)
		}),
		channel.Subscribe(c.push, channel.PreferencesUpdated, func(channel.PreferenceEvent) {
			c.metricInc(MetricPushEvent)
			c.cache.Invalidate(PreferencesKey())
		}),
		channel.Subscribe(c.push, channel.CourseUpdated, func(ev channel.CourseUpdatedEvent) {
			c.metricInc(MetricPushEvent)
			if ev.CourseID == "" {
				c.cache.InvalidateResource(ResourceCourses)
				return
			}
			c.cache.Invalidate(CourseKey(ev.CourseID))
		}),
		channel.Subscribe(c.push, channel.AnnouncementPosted, func(channel.AnnouncementEvent) {
			c.metricInc(MetricPushEvent)
			c.cache.InvalidateResource(ResourceAnnouncements)
		}),
		channel.Subscribe(c.push, channel.SessionRevoked, func(ev channel.SessionRevokedEvent) {
			c.metricInc(MetricPushEvent)
			c.metricInc(MetricSessionRevoked)
			glog.V(1).Infof("goLMS: session revoked by server (reason=%q)", ev.Reason)
			if err := c.Logout(context.Background()); err != nil {
				glog.Warningf("goLMS: logout after revocation: %v", err)
			}
		}),
	}
}
